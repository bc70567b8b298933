package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-backend/internal/audit"
	"studio-backend/internal/domain"
	"studio-backend/internal/testutil"
)

// fakeObjectAPI is an in-memory bucket.
type fakeObjectAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	putErr  error
	puts    []*s3.PutObjectInput
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string][]byte)}
}

func (f *fakeObjectAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestAuditStore_Key(t *testing.T) {
	assert.Equal(t, "data/audit-log.json", NewAuditStore(newFakeObjectAPI(), "bucket", "").Key())
	assert.Equal(t, "studio/data/audit-log.json", NewAuditStore(newFakeObjectAPI(), "bucket", "studio/").Key())
}

func TestAuditStore_MissingObjectIsEmpty(t *testing.T) {
	store := NewAuditStore(newFakeObjectAPI(), "bucket", "studio/")

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditStore_SaveAndLoad(t *testing.T) {
	api := newFakeObjectAPI()
	store := NewAuditStore(api, "bucket", "studio/")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testutil.NewTestAuditEntries(2)))

	require.Len(t, api.puts, 1)
	assert.Equal(t, "application/json", aws.ToString(api.puts[0].ContentType))
	assert.Contains(t, api.objects, "bucket/studio/data/audit-log.json")

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditStore_Errors(t *testing.T) {
	api := newFakeObjectAPI()
	api.getErr = errors.New("access denied")
	api.putErr = errors.New("access denied")
	store := NewAuditStore(api, "bucket", "")

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/data/audit-log.json")

	err = store.Save(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to put")
}

func TestAuditStore_WithLog(t *testing.T) {
	store := NewAuditStore(newFakeObjectAPI(), "bucket", "studio/")
	log := audit.New(store, audit.Config{})
	ctx := context.Background()

	log.Record(ctx, domain.EventFileDeleted, domain.RequestContext{}, domain.AuditDetails{Username: "admin", Success: true})

	entries, err := log.Query(ctx, domain.AuditFilter{Username: "admin"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SeverityWarning, entries[0].Severity)
}

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{
		Endpoint:  "https://fsn1.example-objects.com",
		Region:    "eu-central",
		AccessKey: "key",
		SecretKey: "secret",
	})

	opts := client.Options()
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "eu-central", opts.Region)
	assert.Equal(t, "https://fsn1.example-objects.com", aws.ToString(opts.BaseEndpoint))
}
