package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"

	"github.com/imamik/mskstack/internal/util/async"
	"github.com/imamik/mskstack/internal/util/retry"
	"github.com/imamik/mskstack/pkg/msk"
)

// clusterAdmin is the read-only subset of sarama.ClusterAdmin used here.
type clusterAdmin interface {
	ListTopics() (map[string]sarama.TopicDetail, error)
	ListAcls(filter sarama.AclFilter) ([]sarama.ResourceAcls, error)
	Close() error
}

// Topic is a live topic.
type Topic struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// Admin is a read-only admin connection to a cluster.
type Admin struct {
	admin clusterAdmin
}

// Connect dials the brokers and opens an admin connection. Failed dials
// are retried; rejected credentials are not.
func Connect(ctx context.Context, opts Options) (*Admin, error) {
	sc, err := NewConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	retries := opts.DialRetries
	if retries == 0 {
		retries = 3
	}
	delay := opts.DialDelay
	if delay == 0 {
		delay = 2 * time.Second
	}

	var client sarama.Client
	err = retry.Do(ctx, func() error {
		c, err := sarama.NewClient(opts.Brokers, sc)
		if err != nil {
			if isAuthError(err) {
				return retry.Fatal(err)
			}
			return err
		}
		client = c
		return nil
	}, retry.WithMaxRetries(retries), retry.WithInitialDelay(delay))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %v: %w", opts.Brokers, err)
	}

	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create cluster admin: %w", err)
	}
	return &Admin{admin: admin}, nil
}

// Close closes the connection and its client.
func (a *Admin) Close() error {
	return a.admin.Close()
}

// ListTopics returns all topics sorted by name, internal topics included.
func (a *Admin) ListTopics(ctx context.Context) ([]Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	details, err := a.admin.ListTopics()
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	topics := make([]Topic, 0, len(details))
	for name, d := range details {
		topics = append(topics, Topic{
			Name:              name,
			Partitions:        int(d.NumPartitions),
			ReplicationFactor: int(d.ReplicationFactor),
		})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

// ListACLs returns every ACL entry on the cluster, sorted by key.
func (a *Admin) ListACLs(ctx context.Context) ([]msk.Acl, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resources, err := a.admin.ListAcls(sarama.AclFilter{
		Version:                   1,
		ResourceType:              sarama.AclResourceAny,
		ResourcePatternTypeFilter: sarama.AclPatternAny,
		Operation:                 sarama.AclOperationAny,
		PermissionType:            sarama.AclPermissionAny,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list acls: %w", err)
	}
	var acls []msk.Acl
	for _, r := range resources {
		for _, acl := range r.Acls {
			acls = append(acls, msk.AclFromSarama(r.Resource, acl))
		}
	}
	sort.Slice(acls, func(i, j int) bool { return acls[i].Key() < acls[j].Key() })
	return acls, nil
}

// Check lists the live topics, and the live ACLs when acls is not empty,
// and compares them to the declared ones. IAM clusters have no Kafka ACLs
// to list.
func (a *Admin) Check(ctx context.Context, topics []msk.MskTopic, acls []msk.Acl) (*Report, error) {
	var (
		live     []Topic
		liveACLs []msk.Acl
	)
	tasks := []async.Task{{Name: "topics", Func: func(ctx context.Context) (err error) {
		live, err = a.ListTopics(ctx)
		return err
	}}}
	if len(acls) > 0 {
		tasks = append(tasks, async.Task{Name: "acls", Func: func(ctx context.Context) (err error) {
			liveACLs, err = a.ListACLs(ctx)
			return err
		}})
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		return nil, err
	}
	return Compare(topics, acls, live, liveACLs), nil
}

func isAuthError(err error) bool {
	return errors.Is(err, sarama.ErrSASLAuthenticationFailed) ||
		errors.Is(err, sarama.ErrTopicAuthorizationFailed) ||
		errors.Is(err, sarama.ErrClusterAuthorizationFailed)
}
