// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package workqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWork_RejectsNilCallable(t *testing.T) {
	work, err := MakeWork(Sync, "payload", 1, nil, nil)
	assert.Nil(t, work)
	assert.ErrorIs(t, err, ErrWorkCreate)
}

func TestMakeWork_BuildsItemWithEmptyLinkage(t *testing.T) {
	work, err := MakeWork(Async, 42, 7, func(any) {}, nil)
	require.NoError(t, err)
	assert.Equal(t, Async, work.Disposition)
	assert.Equal(t, 42, work.Payload)
	assert.Equal(t, 7, work.Tag)
	assert.Equal(t, -1, work.AssignedWorker)
}

func TestFreeWork_NullsHandle(t *testing.T) {
	work, err := MakeWork(Sync, nil, 0, func(any) {}, nil)
	require.NoError(t, err)
	FreeWork(&work)
	assert.Nil(t, work)
}

func TestWorkItem_SyncDestructorRunsOnlyForSync(t *testing.T) {
	called := 0
	syncWork, err := MakeWork(Sync, nil, 0, func(any) {}, func(any) { called++ })
	require.NoError(t, err)
	syncWork.runSyncDestructor()
	assert.Equal(t, 1, called)

	called = 0
	asyncWork, err := MakeWork(Async, nil, 0, func(any) {}, func(any) { called++ })
	require.NoError(t, err)
	asyncWork.runSyncDestructor()
	assert.Equal(t, 0, called)
}

func TestDisposition_String(t *testing.T) {
	assert.Equal(t, "sync", Sync.String())
	assert.Equal(t, "async", Async.String())
	assert.Equal(t, "unknown", Disposition(99).String())
}

func TestStopPolicy_String(t *testing.T) {
	assert.Equal(t, "soft", StopSoft.String())
	assert.Equal(t, "hard", StopHard.String())
	assert.Equal(t, "unknown", StopPolicy(99).String())
}
