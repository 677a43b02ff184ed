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

package commands_test

import (
	"context"
	"testing"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/commands"
	"github.com/faithlence/faithlence/internal/core/cor"
	testutil "github.com/faithlence/faithlence/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNotificationReaderDecodesFinalizeEvent(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, testutil.GetTestStorageNotification())

	cmd := commands.NewNotificationReader("read-notification")
	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	blob, ok := ctx.Get(cloud.BlobObjectKey).(*cloud.BlobObject)
	assert.True(t, ok)
	assert.Equal(t, "faithlence-test-relay", blob.Bucket)
	assert.Equal(t, "sermon-042.mp3", blob.Name)
	assert.Equal(t, "audio/mpeg", blob.MIMEType)
	assert.Equal(t, int64(8422911), blob.Size)
}

func TestNotificationReaderRejectsGarbage(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, "not json")

	cmd := commands.NewNotificationReader("read-notification")
	cmd.Execute(ctx)

	assert.True(t, ctx.HasErrors())
}
