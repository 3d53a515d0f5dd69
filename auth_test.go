//
//  Copyright 2023 The compat authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package compat_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chevah/compat"
)

type fakeBackend struct {
	name     string
	decision compat.Decision
	token    compat.Token
	err      error
	exists   bool
}

func (b *fakeBackend) Name() string {
	return b.name
}

func (b *fakeBackend) Authenticate(username, password string) (compat.Decision, compat.Token, error) {
	return b.decision, b.token, b.err
}

func (b *fakeBackend) Exists(username string) (bool, error) {
	return b.exists, b.err
}

func TestAuthenticatorFirstDefinitiveAnswerWins(t *testing.T) {
	auth := compat.NewAuthenticator(
		&fakeBackend{name: "native", decision: compat.DecisionUnknown},
		&fakeBackend{name: "shadow", decision: compat.DecisionAccept, token: compat.Token(7)},
		&fakeBackend{name: "pam", decision: compat.DecisionReject},
	)

	decision, token, err := auth.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionAccept, decision)
	assert.Equal(t, compat.Token(7), token)
}

func TestAuthenticatorRejectIsFinal(t *testing.T) {
	auth := compat.NewAuthenticator(
		&fakeBackend{name: "native", decision: compat.DecisionReject},
		&fakeBackend{name: "pam", decision: compat.DecisionAccept},
	)

	decision, _, err := auth.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionReject, decision)
}

func TestAuthenticatorSkipsFailingBackend(t *testing.T) {
	auth := compat.NewAuthenticator(
		&fakeBackend{name: "native", err: errors.New("store offline")},
		&fakeBackend{name: "shadow", decision: compat.DecisionAccept},
	)

	decision, _, err := auth.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionAccept, decision)
}

func TestAuthenticatorNoOpinion(t *testing.T) {
	auth := compat.NewAuthenticator(
		&fakeBackend{name: "native", decision: compat.DecisionUnknown},
		&fakeBackend{name: "shadow", decision: compat.DecisionUnknown},
	)

	decision, token, err := auth.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionUnknown, decision)
	assert.Equal(t, compat.NoToken, token)
}

func TestAuthenticatorSkipsNilBackends(t *testing.T) {
	auth := compat.NewAuthenticator(
		&fakeBackend{name: "native"},
		nil,
		&fakeBackend{name: "shadow"},
	)

	assert.Equal(t, []string{"native", "shadow"}, auth.Backends())
}

func TestAuthenticatorUserExists(t *testing.T) {
	auth := compat.NewAuthenticator(
		&fakeBackend{name: "native", err: errors.New("store offline"), exists: true},
		&fakeBackend{name: "shadow", exists: true},
	)

	assert.True(t, auth.UserExists("alice"))
	assert.False(t, auth.UserExists(""))

	missing := compat.NewAuthenticator(
		&fakeBackend{name: "native", exists: false},
	)
	assert.False(t, missing.UserExists("alice"))
}
