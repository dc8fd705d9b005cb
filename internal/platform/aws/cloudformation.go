package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/imamik/mskstack/internal/util/naming"
	"github.com/imamik/mskstack/internal/util/retry"
)

// MaxInlineTemplateSize is the largest template body CloudFormation accepts
// inline. Larger templates must be staged in S3.
const MaxInlineTemplateSize = 51200

// The templates declare IAM roles and named policies.
var capabilities = []types.Capability{types.CapabilityCapabilityIam, types.CapabilityCapabilityNamedIam}

// Template is a template body or the URL of a staged copy. URL wins when set.
type Template struct {
	Body string
	URL  string
}

// Operation is what a deploy did to the stack.
type Operation string

const (
	// OperationCreate means the stack was created.
	OperationCreate Operation = "create"
	// OperationUpdate means the stack was updated.
	OperationUpdate Operation = "update"
	// OperationNone means the template matched the deployed stack.
	OperationNone Operation = "none"
)

// DeployInput describes a stack deployment.
type DeployInput struct {
	StackName    string
	Template     Template
	Tags         map[string]string
	Timeout      time.Duration
	PollInterval time.Duration
}

// DeployResult is the outcome of Deploy.
type DeployResult struct {
	StackID   string
	Operation Operation
	Outputs   map[string]string
}

// StackInfo is the current state of a stack.
type StackInfo struct {
	ID           string
	Name         string
	Status       string
	StatusReason string
	Outputs      map[string]string
}

// InProgress reports whether an operation is running on the stack.
func (s *StackInfo) InProgress() bool {
	return strings.HasSuffix(s.Status, "_IN_PROGRESS")
}

// StackEvent is one entry of a stack's event log.
type StackEvent struct {
	ID           string
	Timestamp    time.Time
	LogicalID    string
	ResourceType string
	Status       string
	Reason       string
}

// Failed reports whether the event records a failure.
func (e StackEvent) Failed() bool {
	return strings.HasSuffix(e.Status, "_FAILED")
}

// Change is one resource change of a change set.
type Change struct {
	Action       string
	LogicalID    string
	ResourceType string
	Replacement  string
}

// call runs one API operation with retries on throttling and reports
// the outcome to OnCall.
func (c *Clients) call(ctx context.Context, operation string, op func() error) error {
	start := time.Now()
	err := retry.Do(ctx, op,
		retry.WithMaxRetries(c.RetryAttempts),
		retry.WithInitialDelay(c.RetryDelay),
		retry.WithRetryable(isThrottled))
	if c.OnCall != nil {
		c.OnCall(operation, err, time.Since(start))
	}
	return err
}

// DescribeStack returns the state of a stack, or ErrStackNotFound.
func (c *Clients) DescribeStack(ctx context.Context, name string) (*StackInfo, error) {
	var out *cloudformation.DescribeStacksOutput
	err := c.call(ctx, "DescribeStacks", func() error {
		var err error
		out, err = c.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
		return err
	})
	if err != nil {
		if isStackNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		return nil, fmt.Errorf("failed to describe stack %s: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}

	s := out.Stacks[0]
	info := &StackInfo{
		ID:           aws.ToString(s.StackId),
		Name:         aws.ToString(s.StackName),
		Status:       string(s.StackStatus),
		StatusReason: aws.ToString(s.StackStatusReason),
		Outputs:      make(map[string]string, len(s.Outputs)),
	}
	for _, o := range s.Outputs {
		info.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return info, nil
}

// Deploy creates the stack, or updates it when it exists. Stacks left in
// ROLLBACK_COMPLETE or REVIEW_IN_PROGRESS cannot be updated and are
// replaced. An update with no changes is a success.
func (c *Clients) Deploy(ctx context.Context, in DeployInput) (*DeployResult, error) {
	info, err := c.DescribeStack(ctx, in.StackName)
	switch {
	case errors.Is(err, ErrStackNotFound):
		return c.createStack(ctx, in)
	case err != nil:
		return nil, err
	}

	switch types.StackStatus(info.Status) {
	case types.StackStatusRollbackComplete, types.StackStatusReviewInProgress:
		if _, err := c.DeleteStack(ctx, in.StackName, in.Timeout, in.PollInterval); err != nil {
			return nil, fmt.Errorf("failed to replace stack in %s: %w", info.Status, err)
		}
		return c.createStack(ctx, in)
	}
	if info.InProgress() {
		return nil, fmt.Errorf("stack %s is %s, wait for the running operation to finish", in.StackName, info.Status)
	}
	return c.updateStack(ctx, in)
}

func (c *Clients) createStack(ctx context.Context, in DeployInput) (*DeployResult, error) {
	input := &cloudformation.CreateStackInput{
		StackName:    aws.String(in.StackName),
		Capabilities: capabilities,
		Tags:         stackTags(in.Tags),
		OnFailure:    types.OnFailureRollback,
	}
	input.TemplateBody, input.TemplateURL = in.Template.fields()

	var out *cloudformation.CreateStackOutput
	err := c.call(ctx, "CreateStack", func() error {
		var err error
		out, err = c.CloudFormation.CreateStack(ctx, input)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stack %s: %w", in.StackName, err)
	}

	waiter := cloudformation.NewStackCreateCompleteWaiter(c.CloudFormation, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
		o.MinDelay, o.MaxDelay = pollDelays(in.PollInterval, o.MinDelay, o.MaxDelay)
	})
	if err := waiter.Wait(ctx, describeInput(in.StackName), timeoutOrDefault(in.Timeout)); err != nil {
		return nil, c.failure(ctx, in.StackName, "create", err)
	}
	return c.result(ctx, in.StackName, aws.ToString(out.StackId), OperationCreate)
}

func (c *Clients) updateStack(ctx context.Context, in DeployInput) (*DeployResult, error) {
	input := &cloudformation.UpdateStackInput{
		StackName:    aws.String(in.StackName),
		Capabilities: capabilities,
		Tags:         stackTags(in.Tags),
	}
	input.TemplateBody, input.TemplateURL = in.Template.fields()

	var out *cloudformation.UpdateStackOutput
	err := c.call(ctx, "UpdateStack", func() error {
		var err error
		out, err = c.CloudFormation.UpdateStack(ctx, input)
		return err
	})
	if isNoUpdates(err) {
		return c.result(ctx, in.StackName, "", OperationNone)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update stack %s: %w", in.StackName, err)
	}

	waiter := cloudformation.NewStackUpdateCompleteWaiter(c.CloudFormation, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
		o.MinDelay, o.MaxDelay = pollDelays(in.PollInterval, o.MinDelay, o.MaxDelay)
	})
	if err := waiter.Wait(ctx, describeInput(in.StackName), timeoutOrDefault(in.Timeout)); err != nil {
		return nil, c.failure(ctx, in.StackName, "update", err)
	}
	return c.result(ctx, in.StackName, aws.ToString(out.StackId), OperationUpdate)
}

func (c *Clients) result(ctx context.Context, name, id string, op Operation) (*DeployResult, error) {
	info, err := c.DescribeStack(ctx, name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = info.ID
	}
	return &DeployResult{StackID: id, Operation: op, Outputs: info.Outputs}, nil
}

// failure explains a waiter error with the first failed resource event.
func (c *Clients) failure(ctx context.Context, name, op string, waitErr error) error {
	events, err := c.StackEvents(ctx, name, time.Time{})
	if err == nil {
		for _, e := range events {
			if e.Failed() && e.Reason != "" {
				return fmt.Errorf("stack %s failed: %s %s: %s: %w", op, e.LogicalID, e.Status, e.Reason, waitErr)
			}
		}
	}
	return fmt.Errorf("stack %s failed: %w", op, waitErr)
}

// DeleteStack deletes a stack and waits for it to be gone. It reports
// false when the stack did not exist.
func (c *Clients) DeleteStack(ctx context.Context, name string, timeout, poll time.Duration) (bool, error) {
	if _, err := c.DescribeStack(ctx, name); err != nil {
		if errors.Is(err, ErrStackNotFound) {
			return false, nil
		}
		return false, err
	}

	err := c.call(ctx, "DeleteStack", func() error {
		_, err := c.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(name)})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete stack %s: %w", name, err)
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(c.CloudFormation, func(o *cloudformation.StackDeleteCompleteWaiterOptions) {
		o.MinDelay, o.MaxDelay = pollDelays(poll, o.MinDelay, o.MaxDelay)
	})
	if err := waiter.Wait(ctx, describeInput(name), timeoutOrDefault(timeout)); err != nil {
		return false, c.failure(ctx, name, "delete", err)
	}
	return true, nil
}

// StackEvents returns the events newer than since, oldest first.
func (c *Clients) StackEvents(ctx context.Context, name string, since time.Time) ([]StackEvent, error) {
	var events []StackEvent
	var token *string
	for {
		var out *cloudformation.DescribeStackEventsOutput
		err := c.call(ctx, "DescribeStackEvents", func() error {
			var err error
			out, err = c.CloudFormation.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
				StackName: aws.String(name),
				NextToken: token,
			})
			return err
		})
		if err != nil {
			if isStackNotFound(err) {
				return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
			}
			return nil, fmt.Errorf("failed to describe events of stack %s: %w", name, err)
		}

		// Pages are newest first; stop at the first event not after since.
		done := false
		for _, e := range out.StackEvents {
			ts := aws.ToTime(e.Timestamp)
			if !since.IsZero() && !ts.After(since) {
				done = true
				break
			}
			events = append(events, StackEvent{
				ID:           aws.ToString(e.EventId),
				Timestamp:    ts,
				LogicalID:    aws.ToString(e.LogicalResourceId),
				ResourceType: aws.ToString(e.ResourceType),
				Status:       string(e.ResourceStatus),
				Reason:       aws.ToString(e.ResourceStatusReason),
			})
		}
		if done || out.NextToken == nil || since.IsZero() {
			break
		}
		token = out.NextToken
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

// WatchEvents polls the stack's events every interval and calls fn once for
// each event newer than since, in order. It returns when ctx is done.
func (c *Clients) WatchEvents(ctx context.Context, name string, since time.Time, interval time.Duration, fn func(StackEvent)) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	seen := make(map[string]bool)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		events, err := c.StackEvents(ctx, name, since)
		if err != nil && !errors.Is(err, ErrStackNotFound) && ctx.Err() == nil {
			return err
		}
		for _, e := range events {
			if !seen[e.ID] {
				seen[e.ID] = true
				fn(e)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Diff creates a change set for the template, lists its changes and
// deletes it again. A stack that does not exist yet is diffed against an
// empty one, and the placeholder stack the change set leaves is removed.
// A stack that was already in REVIEW_IN_PROGRESS is left in place.
func (c *Clients) Diff(ctx context.Context, in DeployInput) ([]Change, error) {
	changeSetType := types.ChangeSetTypeUpdate
	placeholder := false
	info, err := c.DescribeStack(ctx, in.StackName)
	switch {
	case errors.Is(err, ErrStackNotFound):
		changeSetType = types.ChangeSetTypeCreate
		placeholder = true
	case err != nil:
		return nil, err
	case types.StackStatus(info.Status) == types.StackStatusReviewInProgress:
		changeSetType = types.ChangeSetTypeCreate
	}

	name := naming.DiffChangeSet(time.Now())
	input := &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(name),
		ChangeSetType: changeSetType,
		Capabilities:  capabilities,
		Tags:          stackTags(in.Tags),
	}
	input.TemplateBody, input.TemplateURL = in.Template.fields()

	err = c.call(ctx, "CreateChangeSet", func() error {
		_, err := c.CloudFormation.CreateChangeSet(ctx, input)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create change set: %w", err)
	}
	defer c.cleanupChangeSet(ctx, in.StackName, name, placeholder)

	describe := &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(name),
	}
	waiter := cloudformation.NewChangeSetCreateCompleteWaiter(c.CloudFormation, func(o *cloudformation.ChangeSetCreateCompleteWaiterOptions) {
		o.MinDelay, o.MaxDelay = pollDelays(in.PollInterval, o.MinDelay, o.MaxDelay)
	})
	waitErr := waiter.Wait(ctx, describe, timeoutOrDefault(in.Timeout))

	var changes []Change
	for {
		var out *cloudformation.DescribeChangeSetOutput
		err := c.call(ctx, "DescribeChangeSet", func() error {
			var err error
			out, err = c.CloudFormation.DescribeChangeSet(ctx, describe)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe change set: %w", err)
		}
		if out.Status == types.ChangeSetStatusFailed {
			if noChanges(aws.ToString(out.StatusReason)) {
				return nil, nil
			}
			return nil, fmt.Errorf("change set failed: %s", aws.ToString(out.StatusReason))
		}
		if waitErr != nil {
			return nil, fmt.Errorf("change set did not complete: %w", waitErr)
		}
		for _, ch := range out.Changes {
			rc := ch.ResourceChange
			if rc == nil {
				continue
			}
			changes = append(changes, Change{
				Action:       string(rc.Action),
				LogicalID:    aws.ToString(rc.LogicalResourceId),
				ResourceType: aws.ToString(rc.ResourceType),
				Replacement:  string(rc.Replacement),
			})
		}
		if out.NextToken == nil {
			break
		}
		describe.NextToken = out.NextToken
	}
	return changes, nil
}

// cleanupChangeSet deletes the diff change set, and the stack it created
// when deleteStack is set.
func (c *Clients) cleanupChangeSet(ctx context.Context, stackName, changeSet string, deleteStack bool) {
	// The caller's context may already be canceled.
	ctx = context.WithoutCancel(ctx)
	_ = c.call(ctx, "DeleteChangeSet", func() error {
		_, err := c.CloudFormation.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
			StackName:     aws.String(stackName),
			ChangeSetName: aws.String(changeSet),
		})
		return err
	})
	if deleteStack {
		_ = c.call(ctx, "DeleteStack", func() error {
			_, err := c.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(stackName)})
			return err
		})
	}
}

func noChanges(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") || strings.Contains(reason, "No updates are to be performed")
}

func (t Template) fields() (body, url *string) {
	if t.URL != "" {
		return nil, aws.String(t.URL)
	}
	return aws.String(t.Body), nil
}

func describeInput(name string) *cloudformation.DescribeStacksInput {
	return &cloudformation.DescribeStacksInput{StackName: aws.String(name)}
}

func stackTags(tags map[string]string) []types.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

// pollDelays applies a poll interval to waiter delays. The SDK rejects
// a maximum below the minimum.
func pollDelays(poll, minDelay, maxDelay time.Duration) (time.Duration, time.Duration) {
	if poll <= 0 {
		return minDelay, maxDelay
	}
	if maxDelay < poll {
		maxDelay = poll
	}
	return poll, maxDelay
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Minute
	}
	return d
}
