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

package memidm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chevah/compat"
)

func newPopulatedIdm(t *testing.T) *MemIdm {
	t.Helper()

	idm := New()

	_, err := idm.AddGroup("staff")
	require.NoError(t, err)

	_, err = idm.AddGroup("wheel")
	require.NoError(t, err)

	_, err = idm.AddUser("alice", "staff")
	require.NoError(t, err)

	require.NoError(t, idm.AddUserToGroup("alice", "wheel"))

	return idm
}

func TestLookupUserAndGroup(t *testing.T) {
	idm := newPopulatedIdm(t)

	u, err := idm.LookupUser("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name())

	g, err := idm.LookupGroupId(u.Gid())
	require.NoError(t, err)
	assert.Equal(t, "staff", g.Name())

	_, err = idm.LookupUser("nobody-here")

	var unknown compat.UnknownUserError
	assert.ErrorAs(t, err, &unknown)
}

func TestLookupUserIgnoresDomain(t *testing.T) {
	idm := newPopulatedIdm(t)

	u, err := idm.LookupUser("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name())
}

func TestUserExists(t *testing.T) {
	idm := newPopulatedIdm(t)

	assert.True(t, idm.UserExists("alice"))
	assert.False(t, idm.UserExists("bob"))
	assert.False(t, idm.UserExists(""))
}

func TestGroupForUser(t *testing.T) {
	idm := newPopulatedIdm(t)

	// Empty candidate lists are rejected before any lookup.
	_, err := idm.GroupForUser("alice", nil)
	assert.EqualError(t, err, "Groups for validation can't be empty.")

	_, err = idm.GroupForUser("alice", []string{})
	assert.EqualError(t, err, "Groups for validation can't be empty.")

	// Primary group match.
	g, err := idm.GroupForUser("alice", []string{"staff"})
	require.NoError(t, err)
	assert.Equal(t, "staff", g.Name())

	// Membership match, candidate order decides.
	g, err = idm.GroupForUser("alice", []string{"wheel", "staff"})
	require.NoError(t, err)
	assert.Equal(t, "wheel", g.Name())

	_, err = idm.GroupForUser("alice", []string{"operators"})

	var unknown compat.UnknownGroupError
	assert.ErrorAs(t, err, &unknown)
}

func TestPrimaryGroup(t *testing.T) {
	idm := newPopulatedIdm(t)

	g, err := idm.PrimaryGroup("alice")
	require.NoError(t, err)
	assert.Equal(t, "staff", g.Name())

	_, err = idm.PrimaryGroup("bob")
	assert.True(t,
		compat.IsCompatError(err, compat.EventPrimaryGroupFailed))
	assert.Contains(t, err.Error(), "bob")
}

func TestHomeFolder(t *testing.T) {
	idm := newPopulatedIdm(t)

	idm.SetHomeFolder("alice", "/home/alice")

	home, err := idm.HomeFolder("alice", compat.NoToken)
	require.NoError(t, err)
	assert.Equal(t, "/home/alice", home)

	_, err = idm.HomeFolder("bob", compat.NoToken)
	assert.True(t,
		compat.IsCompatError(err, compat.EventHomeFolderFailed))
}

func TestBackendAuthenticate(t *testing.T) {
	idm := newPopulatedIdm(t)
	idm.SetPassword("alice", "secret")

	backend := NewBackend(idm, "test-store")
	assert.Equal(t, "test-store", backend.Name())

	decision, _, err := backend.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionAccept, decision)

	decision, _, err = backend.Authenticate("alice", "wrong")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionReject, decision)

	// Unknown accounts yield no decision, not a rejection.
	decision, _, err = backend.Authenticate("bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, compat.DecisionUnknown, decision)

	exists, err := backend.Exists("alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAddDuplicates(t *testing.T) {
	idm := newPopulatedIdm(t)

	_, err := idm.AddGroup("staff")

	var groupExists compat.AlreadyExistsGroupError
	assert.ErrorAs(t, err, &groupExists)

	_, err = idm.AddUser("alice", "staff")

	var userExists compat.AlreadyExistsUserError
	assert.ErrorAs(t, err, &userExists)
}
