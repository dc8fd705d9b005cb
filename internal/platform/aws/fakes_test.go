package aws

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var errNotFound = &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id orders-kafka does not exist"}

// stackState is one DescribeStacks answer. A nil status means the stack
// does not exist.
type stackState struct {
	status  types.StackStatus
	outputs map[string]string
}

// fakeCloudFormation answers DescribeStacks from a script of states; the
// last state repeats once the script is used up.
type fakeCloudFormation struct {
	states   []stackState
	describe int

	createInput *cloudformation.CreateStackInput
	updateInput *cloudformation.UpdateStackInput
	updateErr   error
	deleted     []string

	changeSet          *cloudformation.CreateChangeSetInput
	changeSetStatus    types.ChangeSetStatus
	changeSetReason    string
	changes            []types.Change
	deletedChangeSets  []string
	events             []types.StackEvent
	describeErrsBefore int
	// changeSetErrsBefore throttles that many DescribeChangeSet calls
	// after the first one, which the waiter makes.
	changeSetErrsBefore int
	changeSetCalls      int
}

func (f *fakeCloudFormation) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if f.describeErrsBefore > 0 {
		f.describeErrsBefore--
		return nil, &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
	}
	i := f.describe
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.describe++
	st := f.states[i]
	if st.status == "" {
		return nil, errNotFound
	}
	stack := types.Stack{
		StackId:     aws.String("arn:aws:cloudformation:eu-west-1:123456789012:stack/" + aws.ToString(in.StackName) + "/1"),
		StackName:   in.StackName,
		StackStatus: st.status,
	}
	for k, v := range st.outputs {
		stack.Outputs = append(stack.Outputs, types.Output{OutputKey: aws.String(k), OutputValue: aws.String(v)})
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []types.Stack{stack}}, nil
}

func (f *fakeCloudFormation) CreateStack(_ context.Context, in *cloudformation.CreateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	f.createInput = in
	return &cloudformation.CreateStackOutput{StackId: aws.String("stack-id")}, nil
}

func (f *fakeCloudFormation) UpdateStack(_ context.Context, in *cloudformation.UpdateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	f.updateInput = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &cloudformation.UpdateStackOutput{StackId: aws.String("stack-id")}, nil
}

func (f *fakeCloudFormation) DeleteStack(_ context.Context, in *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.StackName))
	return &cloudformation.DeleteStackOutput{}, nil
}

func (f *fakeCloudFormation) CreateChangeSet(_ context.Context, in *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	f.changeSet = in
	return &cloudformation.CreateChangeSetOutput{Id: aws.String("cs-id")}, nil
}

func (f *fakeCloudFormation) DescribeChangeSet(_ context.Context, _ *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	f.changeSetCalls++
	if f.changeSetCalls > 1 && f.changeSetErrsBefore > 0 {
		f.changeSetErrsBefore--
		return nil, &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
	}
	return &cloudformation.DescribeChangeSetOutput{
		Status:       f.changeSetStatus,
		StatusReason: aws.String(f.changeSetReason),
		Changes:      f.changes,
	}, nil
}

func (f *fakeCloudFormation) DeleteChangeSet(_ context.Context, in *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	f.deletedChangeSets = append(f.deletedChangeSets, aws.ToString(in.ChangeSetName))
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

func (f *fakeCloudFormation) DescribeStackEvents(_ context.Context, _ *cloudformation.DescribeStackEventsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	return &cloudformation.DescribeStackEventsOutput{StackEvents: f.events}, nil
}

func stackEvent(id, logicalID, status, reason string, at time.Time) types.StackEvent {
	return types.StackEvent{
		EventId:              aws.String(id),
		LogicalResourceId:    aws.String(logicalID),
		ResourceType:         aws.String("AWS::MSK::Cluster"),
		ResourceStatus:       types.ResourceStatus(status),
		ResourceStatusReason: aws.String(reason),
		Timestamp:            aws.Time(at),
	}
}

type fakeS3 struct {
	bucketExists bool
	createInput  *s3.CreateBucketInput
	puts         map[string]int
	deletes      []string
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createInput = in
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.puts == nil {
		f.puts = make(map[string]int)
	}
	f.puts[aws.ToString(in.Key)] = int(aws.ToInt64(in.ContentLength))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestClients(cf *fakeCloudFormation, s *fakeS3) *Clients {
	return &Clients{
		Region:         "eu-west-1",
		CloudFormation: cf,
		S3:             s,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
	}
}

var errBoom = errors.New("boom")
