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

package osidm

import (
	"os/user"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chevah/compat"
)

func TestUserExists(t *testing.T) {
	idm := New()

	assert.False(t, idm.UserExists(""))
	assert.False(t, idm.UserExists("no-such-account-0a1b2c"))
	assert.False(t, idm.UserExists("bad\x00name"))
}

func TestLookupUnknownUser(t *testing.T) {
	idm := New()

	_, err := idm.LookupUser("no-such-account-0a1b2c")

	var unknown compat.UnknownUserError
	assert.ErrorAs(t, err, &unknown)
}

func TestGroupForUserEmptyCandidates(t *testing.T) {
	idm := New()

	_, err := idm.GroupForUser("anyone", nil)
	assert.EqualError(t, err, "Groups for validation can't be empty.")

	_, err = idm.GroupForUser("anyone", []string{})
	assert.EqualError(t, err, "Groups for validation can't be empty.")
}

func TestPrimaryGroupUnknownUser(t *testing.T) {
	idm := New()

	_, err := idm.PrimaryGroup("no-such-account-0a1b2c")
	assert.True(t,
		compat.IsCompatError(err, compat.EventPrimaryGroupFailed))
	assert.Contains(t, err.Error(), "no-such-account-0a1b2c")
}

func TestCurrentUserLookup(t *testing.T) {
	if compat.CurrentOSType() == compat.OsWindows {
		t.Skip("account names are domain qualified here")
	}

	current, err := user.Current()
	require.NoError(t, err)

	idm := New()

	assert.True(t, idm.UserExists(current.Username))

	u, err := idm.LookupUser(current.Username)
	require.NoError(t, err)
	assert.Equal(t, current.Username, u.Name())

	// Lookups are cached, a second call returns the same data.
	again, err := idm.LookupUser(current.Username)
	require.NoError(t, err)
	assert.Equal(t, u.Uid(), again.Uid())

	g, err := idm.PrimaryGroup(current.Username)
	require.NoError(t, err)

	found, err := idm.GroupForUser(current.Username, []string{g.Name()})
	require.NoError(t, err)
	assert.Equal(t, g.Gid(), found.Gid())
}

func TestGroupForUserUnknownCandidates(t *testing.T) {
	if compat.CurrentOSType() == compat.OsWindows {
		t.Skip("account names are domain qualified here")
	}

	current, err := user.Current()
	require.NoError(t, err)

	idm := New()

	_, err = idm.GroupForUser(current.Username, []string{"no-such-group-0a1b2c"})

	var unknown compat.UnknownGroupError
	assert.ErrorAs(t, err, &unknown)
}
