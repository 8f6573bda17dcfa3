// Package s3store keeps one S3 object per canvas node. Object bodies are
// snappy-compressed JSON.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	json "github.com/goccy/go-json"
	"github.com/golang/snappy"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Options configures the S3 client built by New.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // for S3-compatible servers such as MinIO
	AccessKeyID     string
	SecretAccessKey string
}

// Store is a persistence.EntityStore and persistence.ViewStore on S3.
type Store struct {
	api    API
	bucket string
	prefix string
}

var (
	_ persistence.EntityStore = (*Store)(nil)
	_ persistence.ViewStore   = (*Store)(nil)
)

// New builds an S3 client from the default AWS configuration chain.
// Static credentials in opts take precedence.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}
	var loaders []func(*config.LoadOptions) error
	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithAPI(client, opts.Bucket, opts.Prefix), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

// record is the object body for a node.
type record struct {
	CanvasID string      `json:"canvasId"`
	Node     *graph.Node `json:"node"`
}

func (s *Store) nodeKey(id graph.NodeID) string {
	return s.prefix + "nodes/" + string(id)
}

func (s *Store) viewKey(canvasID, userID string) string {
	return s.prefix + path.Join("views", canvasID, userID)
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(snappy.Encode(nil, raw)),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("x-snappy"),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%s: %w", key, persistence.ErrNotFound)
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) CreateNode(ctx context.Context, canvasID string, n *graph.Node) (*graph.Node, error) {
	c := n.Clone()
	if c.ID == "" {
		c.ID = graph.NewNodeID()
	}
	c.Geometry = c.Geometry.Clamped()
	if err := s.put(ctx, s.nodeKey(c.ID), record{CanvasID: canvasID, Node: c}); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateNode reads, patches and rewrites the node object.
func (s *Store) UpdateNode(ctx context.Context, id graph.NodeID, fields persistence.Fields) error {
	var rec record
	if err := s.get(ctx, s.nodeKey(id), &rec); err != nil {
		return err
	}
	if rec.Node == nil {
		return fmt.Errorf("node %s: %w", id, persistence.ErrNotFound)
	}
	if err := fields.Apply(rec.Node); err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	return s.put(ctx, s.nodeKey(id), rec)
}

// DeleteNode removes the object. S3 deletes are idempotent.
func (s *Store) DeleteNode(ctx context.Context, id graph.NodeID) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.nodeKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// ListNodes fetches every node object and filters in memory.
func (s *Store) ListNodes(ctx context.Context, filter persistence.Filter) ([]*graph.Node, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "nodes/"),
	})

	var nodes []*graph.Node
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list nodes: %w", err)
		}
		for _, obj := range page.Contents {
			var rec record
			if err := s.get(ctx, aws.ToString(obj.Key), &rec); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					continue // deleted while listing
				}
				return nil, err
			}
			if rec.Node != nil && filter.Match(rec.CanvasID, rec.Node) {
				nodes = append(nodes, rec.Node)
			}
		}
	}
	return nodes, nil
}

func (s *Store) SaveView(ctx context.Context, canvasID, userID string, v viewport.View) error {
	return s.put(ctx, s.viewKey(canvasID, userID), v)
}

func (s *Store) LoadView(ctx context.Context, canvasID, userID string) (viewport.View, error) {
	var v viewport.View
	if err := s.get(ctx, s.viewKey(canvasID, userID), &v); err != nil {
		return viewport.View{}, err
	}
	return v, nil
}
