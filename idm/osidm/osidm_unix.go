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

//go:build linux || darwin

package osidm

import (
	"os/user"
	"strconv"

	"github.com/chevah/compat"
)

const adminUid = 0

func (idm *OsIdm) lookupUser(name string) (*OsUser, error) {
	if u, ok := idm.userCache.Load(name); ok {
		return u, nil
	}

	uu, err := user.Lookup(name)
	if err != nil {
		return nil, compat.UnknownUserError(name)
	}

	u, err := newOsUser(uu)
	if err != nil {
		return nil, err
	}

	idm.userCache.Store(name, u)

	return u, nil
}

func (idm *OsIdm) lookupGroup(name string) (*OsGroup, error) {
	if g, ok := idm.groupCache.Load(name); ok {
		return g, nil
	}

	ug, err := user.LookupGroup(name)
	if err != nil {
		return nil, compat.UnknownGroupError(name)
	}

	gid, err := strconv.Atoi(ug.Gid)
	if err != nil {
		return nil, compat.UnknownGroupError(name)
	}

	g := &OsGroup{name: ug.Name, gid: gid}
	idm.groupCache.Store(name, g)

	return g, nil
}

// LookupUserId looks up a user by userid.
func (idm *OsIdm) LookupUserId(uid int) (compat.UserReader, error) {
	uu, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return nil, compat.UnknownUserIdError(uid)
	}

	return newOsUser(uu)
}

// LookupGroupId looks up a group by groupid.
func (idm *OsIdm) LookupGroupId(gid int) (compat.GroupReader, error) {
	ug, err := user.LookupGroupId(strconv.Itoa(gid))
	if err != nil {
		return nil, compat.UnknownGroupIdError(gid)
	}

	return &OsGroup{name: ug.Name, gid: gid}, nil
}

// HomeFolder returns the home folder of the user identified by name.
// The token is not used on POSIX systems.
func (idm *OsIdm) HomeFolder(name string, token compat.Token) (string, error) {
	u, err := user.Lookup(localName(name))
	if err != nil {
		return "", compat.NewCompatError(compat.EventHomeFolderFailed,
			"Failed to get home folder for user '"+name+"'.").WithDetails(err.Error())
	}

	if u.HomeDir == "" {
		return "", compat.NewCompatError(compat.EventHomeFolderFailed,
			"Failed to get home folder for user '"+name+"'.")
	}

	return u.HomeDir, nil
}

func newOsUser(uu *user.User) (*OsUser, error) {
	uid, err := strconv.Atoi(uu.Uid)
	if err != nil {
		return nil, compat.UnknownUserError(uu.Username)
	}

	gid, err := strconv.Atoi(uu.Gid)
	if err != nil {
		return nil, compat.UnknownUserError(uu.Username)
	}

	u := &OsUser{name: uu.Username, uid: uid, gid: gid}

	// Membership failures leave the explicit list empty: the primary group
	// check still works.
	if gids, err := uu.GroupIds(); err == nil {
		for _, g := range gids {
			if id, err := strconv.Atoi(g); err == nil {
				u.groups = append(u.groups, id)
			}
		}
	}

	return u, nil
}

// NativeBackend checks accounts against the OS user database. On POSIX it
// only answers existence queries: password verification belongs to the
// shadow and PAM collaborators, so Authenticate always delegates.
type NativeBackend struct {
	idm *OsIdm
}

// NewNativeBackend returns the native credential backend.
func NewNativeBackend(idm *OsIdm) *NativeBackend {
	return &NativeBackend{idm: idm}
}

func (b *NativeBackend) Name() string {
	return "os-native"
}

// Authenticate always returns DecisionUnknown on POSIX.
func (b *NativeBackend) Authenticate(username, password string) (compat.Decision, compat.Token, error) {
	return compat.DecisionUnknown, compat.NoToken, nil
}

// Exists returns true if the OS user database knows the account.
func (b *NativeBackend) Exists(username string) (bool, error) {
	return b.idm.UserExists(username), nil
}
