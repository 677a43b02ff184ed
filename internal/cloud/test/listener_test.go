// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// resourceCommand registers a cleanup func on its context and reports both
// the payload it received and whether that cleanup ran.
type resourceCommand struct {
	cor.BaseCommand
	received chan string
	cleaned  chan struct{}
}

func newResourceCommand() *resourceCommand {
	return &resourceCommand{
		BaseCommand: *cor.NewBaseCommand("resource-command"),
		received:    make(chan string, 1),
		cleaned:     make(chan struct{}, 1),
	}
}

func (c *resourceCommand) Execute(corCtx cor.Context) {
	corCtx.AddCleanup("release", func(_ context.Context) error {
		c.cleaned <- struct{}{}
		return nil
	})
	payload, _ := corCtx.Get(cor.CtxIn).(string)
	c.received <- payload
}

func TestListenerClosesContextPerMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := pstest.NewServer()
	defer func() { _ = srv.Close() }()
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	assert.NoError(t, err)
	defer func() { _ = client.Close() }()

	topic, err := client.CreateTopic(ctx, "relay-finalize")
	assert.NoError(t, err)
	_, err = client.CreateSubscription(ctx, "upload-completed",
		pubsub.SubscriptionConfig{Topic: topic})
	assert.NoError(t, err)

	cmd := newResourceCommand()
	listener, err := cloud.NewPubSubListener(client, "upload-completed", cmd)
	assert.NoError(t, err)
	listener.Listen(ctx)

	res := topic.Publish(ctx, &pubsub.Message{Data: []byte("object finalized")})
	_, err = res.Get(ctx)
	assert.NoError(t, err)

	select {
	case payload := <-cmd.received:
		assert.Equal(t, "object finalized", payload)
	case <-time.After(10 * time.Second):
		t.Fatal("message was never delivered to the command")
	}

	// The per-message context must be closed after the command runs, which
	// releases any resources the chain registered.
	select {
	case <-cmd.cleaned:
	case <-time.After(10 * time.Second):
		t.Fatal("registered cleanup never ran; the message context was not closed")
	}
}
