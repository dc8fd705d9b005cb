// Package pricing estimates the monthly cost of an mskstack deployment.
package pricing

import (
	"fmt"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/pkg/msk"
	"github.com/imamik/mskstack/pkg/vpc"
)

// HoursPerMonth is the number of hours AWS bills per month.
const HoursPerMonth = 730

// Calculator calculates stack costs from a price sheet.
type Calculator struct {
	prices *Prices
}

// Prices contains on-demand prices in USD.
type Prices struct {
	// Brokers maps broker instance type to price per broker hour.
	Brokers map[msk.BrokerInstanceType]float64 `json:"brokers"`

	// StorageGBMonth is the price of one GiB of broker storage per month.
	StorageGBMonth float64 `json:"storageGbMonth"`

	// ServerlessClusterHour and ServerlessPartitionHour price serverless
	// clusters. Data in and out is not estimated.
	ServerlessClusterHour   float64 `json:"serverlessClusterHour"`
	ServerlessPartitionHour float64 `json:"serverlessPartitionHour"`

	// NatGatewayHour is the price of one NAT gateway hour.
	NatGatewayHour float64 `json:"natGatewayHour"`
}

// Estimate contains the calculated cost estimate.
type Estimate struct {
	// Items is the list of line items.
	Items []LineItem

	// Total is the monthly sum of all items.
	Total float64

	// Notes report what the estimate leaves out.
	Notes []string

	StackName   string
	ClusterType config.ClusterType
	Region      string
}

// LineItem represents a single cost line item.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitType    string  `json:"unit_type"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// String returns a formatted string representation of the line item.
func (l LineItem) String() string {
	return fmt.Sprintf("%s: %d× %s @ $%.2f = $%.2f/mo",
		l.Description, l.Quantity, l.UnitType, l.UnitPrice, l.Total)
}

// AnnualCost returns the estimated annual cost.
func (e *Estimate) AnnualCost() float64 {
	return e.Total * 12
}

// NewCalculator creates a new calculator with default pricing.
func NewCalculator() *Calculator {
	return &Calculator{
		prices: DefaultPrices(),
	}
}

// NewCalculatorWithPrices creates a new calculator with specific pricing.
func NewCalculatorWithPrices(prices *Prices) *Calculator {
	return &Calculator{
		prices: prices,
	}
}

// Calculate calculates the cost estimate for a configuration with
// defaults applied. The admin handler Lambdas cost cents per deploy and
// are omitted.
func (c *Calculator) Calculate(cfg *config.Config) *Estimate {
	estimate := &Estimate{
		StackName:   cfg.Stack.Name,
		ClusterType: cfg.Cluster.Type,
		Region:      cfg.Stack.Region,
	}

	switch cfg.Cluster.Type {
	case config.ClusterTypeProvisioned:
		c.addProvisioned(estimate, cfg.Cluster.Provisioned)
	case config.ClusterTypeServerless:
		c.addServerless(estimate, cfg.Topics)
	case config.ClusterTypeExternal:
		estimate.Notes = append(estimate.Notes, "the cluster is managed outside the stack and not estimated")
	}

	if cfg.Cluster.Type != config.ClusterTypeExternal && !cfg.Cluster.Vpc.Existing() {
		c.addNatGateways(estimate, cfg.Cluster.Vpc)
	}

	for _, item := range estimate.Items {
		estimate.Total += item.Total
	}
	estimate.Notes = append(estimate.Notes, "data transfer is not estimated")
	return estimate
}

func (c *Calculator) addProvisioned(e *Estimate, p *config.ProvisionedConfig) {
	if p == nil {
		return
	}
	hourly, ok := c.prices.Brokers[p.InstanceType]
	if !ok {
		e.Notes = append(e.Notes, fmt.Sprintf("no price for %s", p.InstanceType))
	}
	brokerMonthly := hourly * HoursPerMonth
	e.Items = append(e.Items, LineItem{
		Description: "Brokers",
		Quantity:    p.Brokers,
		UnitType:    string(p.InstanceType),
		UnitPrice:   brokerMonthly,
		Total:       float64(p.Brokers) * brokerMonthly,
	})

	// Volume size is per broker.
	storageMonthly := float64(p.VolumeSize) * c.prices.StorageGBMonth
	e.Items = append(e.Items, LineItem{
		Description: "Broker Storage",
		Quantity:    p.Brokers,
		UnitType:    fmt.Sprintf("%d GiB", p.VolumeSize),
		UnitPrice:   storageMonthly,
		Total:       float64(p.Brokers) * storageMonthly,
	})
	if p.StorageMode == msk.StorageModeTiered {
		e.Notes = append(e.Notes, "tiered storage is billed by usage and not estimated")
	}
}

func (c *Calculator) addServerless(e *Estimate, topics []config.TopicConfig) {
	clusterMonthly := c.prices.ServerlessClusterHour * HoursPerMonth
	e.Items = append(e.Items, LineItem{
		Description: "Serverless Cluster",
		Quantity:    1,
		UnitType:    "cluster",
		UnitPrice:   clusterMonthly,
		Total:       clusterMonthly,
	})

	partitions := 0
	for _, t := range topics {
		// Topics on the broker default get one partition.
		partitions += max(t.MskTopic().Partitions(), 1)
	}
	if partitions == 0 {
		return
	}
	partitionMonthly := c.prices.ServerlessPartitionHour * HoursPerMonth
	e.Items = append(e.Items, LineItem{
		Description: "Partitions",
		Quantity:    partitions,
		UnitType:    "partition",
		UnitPrice:   partitionMonthly,
		Total:       float64(partitions) * partitionMonthly,
	})
}

func (c *Calculator) addNatGateways(e *Estimate, v config.VpcConfig) {
	count := v.MaxAZs
	if count == 0 {
		count = vpc.DefaultMaxAZs
	}
	if v.NatGateways != nil {
		count = *v.NatGateways
	}
	if count == 0 {
		return
	}
	natMonthly := c.prices.NatGatewayHour * HoursPerMonth
	e.Items = append(e.Items, LineItem{
		Description: "NAT Gateways",
		Quantity:    count,
		UnitType:    "nat-gateway",
		UnitPrice:   natMonthly,
		Total:       float64(count) * natMonthly,
	})
}

// DefaultPrices returns us-east-1 on-demand prices. Broker prices come
// from the instance catalog.
func DefaultPrices() *Prices {
	brokers := make(map[msk.BrokerInstanceType]float64)
	for _, t := range msk.ValidInstanceTypes() {
		brokers[t] = t.Specs().HourlyUSD
	}
	return &Prices{
		Brokers:                 brokers,
		StorageGBMonth:          0.10,
		ServerlessClusterHour:   0.75,
		ServerlessPartitionHour: 0.0015,
		NatGatewayHour:          0.045,
	}
}
