//go:build e2e

package e2e

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/platform/kafka"
	"github.com/imamik/mskstack/internal/synth"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/msk"
)

var _ = Describe("Serverless stack", Ordered, func() {
	var (
		result *synth.Result
		arn    string
	)

	BeforeAll(func() {
		var err error
		result, err = synth.Build(ctx, cfg, synth.NewConsoleObserver())
		Expect(err).NotTo(HaveOccurred())
	})

	It("deploys", func() {
		body, err := result.Stack.Render(cfn.FormatJSON)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(body)).To(BeNumerically("<=", awsplatform.MaxInlineTemplateSize))

		res, err := clients.Deploy(ctx, awsplatform.DeployInput{
			StackName:    cfg.Stack.Name,
			Template:     awsplatform.Template{Body: string(body)},
			Tags:         cfg.Stack.Tags,
			Timeout:      40 * time.Minute,
			PollInterval: 15 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Operation).To(Equal(awsplatform.OperationCreate))
		Expect(res.Outputs).To(HaveKey(synth.OutputClusterArn))
		arn = res.Outputs[synth.OutputClusterArn]
	})

	It("reports an active serverless cluster", func() {
		Eventually(func(g Gomega) {
			info, err := clients.DescribeCluster(ctx, arn)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(info.Type).To(Equal(msk.ClusterTypeServerless))
			g.Expect(info.Active()).To(BeTrue())
		}).WithTimeout(5 * time.Minute).WithPolling(15 * time.Second).Should(Succeed())
	})

	It("has IAM bootstrap brokers", func() {
		brokers, err := clients.GetBootstrapBrokers(ctx, arn)
		Expect(err).NotTo(HaveOccurred())
		list, err := brokers.For(msk.AuthenticationIAM)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).NotTo(BeEmpty())
	})

	It("redeploys without changes", func() {
		body, err := result.Stack.Render(cfn.FormatJSON)
		Expect(err).NotTo(HaveOccurred())

		changes, err := clients.Diff(ctx, awsplatform.DeployInput{
			StackName: cfg.Stack.Name,
			Template:  awsplatform.Template{Body: string(body)},
			Tags:      cfg.Stack.Tags,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(changes).To(BeEmpty())
	})

	It("created the declared topic", func() {
		if os.Getenv("MSKSTACK_E2E_KAFKA") != "1" {
			Skip("MSKSTACK_E2E_KAFKA not set, the cluster may be unreachable")
		}
		brokers, err := clients.GetBootstrapBrokers(ctx, arn)
		Expect(err).NotTo(HaveOccurred())
		list, err := brokers.For(msk.AuthenticationIAM)
		Expect(err).NotTo(HaveOccurred())

		admin, err := kafka.Connect(ctx, kafka.Options{
			Brokers:     list,
			Auth:        msk.AuthenticationIAM,
			Region:      clients.Region,
			Credentials: clients.Credentials,
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(admin.Close)

		report, err := admin.Check(ctx, result.Topics, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Clean()).To(BeTrue(), "drift: %v", report.Problems())
	})
})
