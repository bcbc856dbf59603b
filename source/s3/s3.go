// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gamearchive.
//
// go-gamearchive is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gamearchive is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gamearchive.  If not, see <https://www.gnu.org/licenses/>.

// Package s3 provides a source.Source over an S3 object using ranged GetObject.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ZaparooProject/go-gamearchive/source"
)

// ChunkSize is the granularity of small reads. Reads shorter than a chunk
// fetch the whole aligned chunk and keep it for the next read.
const ChunkSize = 64 * 1024

// ErrInvalidURL is returned by ParseURL for anything but s3://bucket/key.
var ErrInvalidURL = errors.New("invalid s3 url")

// Client is the subset of the S3 API the source needs.
type Client interface {
	GetObject(context.Context, *awss3.GetObjectInput, ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(context.Context, *awss3.HeadObjectInput, ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
}

// ParseURL splits s3://bucket/key into its parts.
func ParseURL(text string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(text, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q does not start with s3://", ErrInvalidURL, text)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs a bucket and a key", ErrInvalidURL, text)
	}
	return bucket, key, nil
}

// IsURL reports whether text looks like an s3:// URL.
func IsURL(text string) bool {
	return strings.HasPrefix(text, "s3://")
}

// Open returns a Source over the object. The object size comes from
// HeadObject; ctx is used for every later request.
func Open(ctx context.Context, client Client, bucket, key string) (source.Source, error) {
	head, err := client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}

	o := &object{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
		etag:   aws.ToString(head.ETag),
	}
	return source.Guard("s3://"+bucket+"/"+key, o, o.size, nil), nil
}

// OpenURL opens an s3://bucket/key URL.
func OpenURL(ctx context.Context, client Client, url string) (source.Source, error) {
	bucket, key, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	return Open(ctx, client, bucket, key)
}

type object struct {
	ctx    context.Context //nolint:containedctx // requests outlive Open
	client Client
	bucket string
	key    string
	etag   string
	chunk  []byte
	size   int64
	chunkN int64
	mu     sync.Mutex
}

// ReadAt implements io.ReaderAt. Callers clamp reads to the object size.
func (o *object) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) >= ChunkSize {
		return o.fetch(p, off)
	}

	start := off / ChunkSize * ChunkSize
	end := start + ChunkSize
	if off+int64(len(p)) > end {
		return o.fetch(p, off)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.chunk == nil || o.chunkN != start {
		buf := make([]byte, min(ChunkSize, o.size-start))
		n, err := o.fetch(buf, start)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		o.chunk, o.chunkN = buf[:n], start
	}

	rel := off - start
	if rel >= int64(len(o.chunk)) {
		return 0, io.EOF
	}
	n := copy(p, o.chunk[rel:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (o *object) fetch(p []byte, off int64) (int, error) {
	in := &awss3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)),
	}
	if o.etag != "" {
		in.IfMatch = aws.String(o.etag)
	}

	out, err := o.client.GetObject(o.ctx, in)
	if err != nil {
		return 0, fmt.Errorf("get s3://%s/%s %s: %w", o.bucket, o.key, aws.ToString(in.Range), err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err //nolint:wrapcheck // io.EOF must reach callers unwrapped
}
