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

// Package memidm is an in-memory identity resolver and credential backend,
// used as the test double for the OS account database and as the secondary
// (shadow-like) store of an Authenticator chain.
package memidm

import (
	"strings"
	"sync"

	"github.com/chevah/compat"
)

const (
	minUid = 1000
	minGid = 1000
)

// MemIdm is an in-memory identity resolver.
type MemIdm struct {
	usersByName  map[string]*MemUser
	usersById    map[int]*MemUser
	groupsByName map[string]*MemGroup
	groupsById   map[int]*MemGroup
	passwords    map[string]string
	homeFolders  map[string]string
	maxUid       int
	maxGid       int
	usrMu        sync.RWMutex
	grpMu        sync.RWMutex
}

// MemUser is a user of a MemIdm.
type MemUser struct {
	name   string
	uid    int
	gid    int
	groups []int
}

func (u *MemUser) Name() string { return u.name }
func (u *MemUser) Uid() int     { return u.uid }
func (u *MemUser) Gid() int     { return u.gid }
func (u *MemUser) IsAdmin() bool {
	return u.uid == 0
}

// MemGroup is a group of a MemIdm.
type MemGroup struct {
	name string
	gid  int
}

func (g *MemGroup) Name() string { return g.name }
func (g *MemGroup) Gid() int     { return g.gid }

// New returns a new empty in-memory identity resolver.
func New() *MemIdm {
	return &MemIdm{
		usersByName:  make(map[string]*MemUser),
		usersById:    make(map[int]*MemUser),
		groupsByName: make(map[string]*MemGroup),
		groupsById:   make(map[int]*MemGroup),
		passwords:    make(map[string]string),
		homeFolders:  make(map[string]string),
		maxUid:       minUid,
		maxGid:       minGid,
	}
}

// AddGroup adds a new group.
func (idm *MemIdm) AddGroup(name string) (*MemGroup, error) {
	idm.grpMu.Lock()
	defer idm.grpMu.Unlock()

	if _, ok := idm.groupsByName[name]; ok {
		return nil, compat.AlreadyExistsGroupError(name)
	}

	idm.maxGid++
	g := &MemGroup{name: name, gid: idm.maxGid}
	idm.groupsByName[name] = g
	idm.groupsById[g.gid] = g

	return g, nil
}

// AddUser adds a new user with groupName as primary group.
func (idm *MemIdm) AddUser(name, groupName string) (*MemUser, error) {
	g, err := idm.lookupGroup(groupName)
	if err != nil {
		return nil, err
	}

	idm.usrMu.Lock()
	defer idm.usrMu.Unlock()

	if _, ok := idm.usersByName[name]; ok {
		return nil, compat.AlreadyExistsUserError(name)
	}

	idm.maxUid++
	u := &MemUser{name: name, uid: idm.maxUid, gid: g.gid}
	idm.usersByName[name] = u
	idm.usersById[u.uid] = u

	return u, nil
}

// AddUserToGroup adds an explicit group membership.
func (idm *MemIdm) AddUserToGroup(name, groupName string) error {
	g, err := idm.lookupGroup(groupName)
	if err != nil {
		return err
	}

	idm.usrMu.Lock()
	defer idm.usrMu.Unlock()

	u, ok := idm.usersByName[name]
	if !ok {
		return compat.UnknownUserError(name)
	}

	u.groups = append(u.groups, g.gid)

	return nil
}

// SetPassword sets the password checked by the credential backend side.
func (idm *MemIdm) SetPassword(name, password string) {
	idm.usrMu.Lock()
	defer idm.usrMu.Unlock()

	idm.passwords[name] = password
}

// SetHomeFolder sets the home folder reported for a user.
func (idm *MemIdm) SetHomeFolder(name, path string) {
	idm.usrMu.Lock()
	defer idm.usrMu.Unlock()

	idm.homeFolders[name] = path
}

func localName(name string) string {
	local, _, _ := strings.Cut(name, "@")

	return local
}

func (idm *MemIdm) lookupUser(name string) (*MemUser, error) {
	idm.usrMu.RLock()
	defer idm.usrMu.RUnlock()

	u, ok := idm.usersByName[localName(name)]
	if !ok {
		return nil, compat.UnknownUserError(name)
	}

	return u, nil
}

func (idm *MemIdm) lookupGroup(name string) (*MemGroup, error) {
	idm.grpMu.RLock()
	defer idm.grpMu.RUnlock()

	g, ok := idm.groupsByName[name]
	if !ok {
		return nil, compat.UnknownGroupError(name)
	}

	return g, nil
}

// LookupUser looks up a user by name.
func (idm *MemIdm) LookupUser(name string) (compat.UserReader, error) {
	return idm.lookupUser(name)
}

// LookupUserId looks up a user by userid.
func (idm *MemIdm) LookupUserId(uid int) (compat.UserReader, error) {
	idm.usrMu.RLock()
	defer idm.usrMu.RUnlock()

	u, ok := idm.usersById[uid]
	if !ok {
		return nil, compat.UnknownUserIdError(uid)
	}

	return u, nil
}

// LookupGroup looks up a group by name.
func (idm *MemIdm) LookupGroup(name string) (compat.GroupReader, error) {
	return idm.lookupGroup(name)
}

// LookupGroupId looks up a group by groupid.
func (idm *MemIdm) LookupGroupId(gid int) (compat.GroupReader, error) {
	idm.grpMu.RLock()
	defer idm.grpMu.RUnlock()

	g, ok := idm.groupsById[gid]
	if !ok {
		return nil, compat.UnknownGroupIdError(gid)
	}

	return g, nil
}

// UserExists returns true if name denotes a known user. It never fails.
func (idm *MemIdm) UserExists(name string) bool {
	if name == "" {
		return false
	}

	_, err := idm.lookupUser(name)

	return err == nil
}

// GroupForUser returns the first candidate group the user belongs to.
func (idm *MemIdm) GroupForUser(name string, candidates []string) (compat.GroupReader, error) {
	if len(candidates) == 0 {
		return nil, compat.InvalidArgumentError("Groups for validation can't be empty.")
	}

	u, err := idm.lookupUser(name)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		g, err := idm.lookupGroup(candidate)
		if err != nil {
			continue
		}

		if g.gid == u.gid {
			return g, nil
		}

		for _, gid := range u.groups {
			if gid == g.gid {
				return g, nil
			}
		}
	}

	return nil, compat.UnknownGroupError(strings.Join(candidates, ", "))
}

// PrimaryGroup returns the primary group of the user identified by name.
func (idm *MemIdm) PrimaryGroup(name string) (compat.GroupReader, error) {
	u, err := idm.lookupUser(name)
	if err != nil {
		return nil, compat.NewCompatError(compat.EventPrimaryGroupFailed,
			"Failed to get primary group for user '"+name+"'.").WithDetails(err.Error())
	}

	return idm.LookupGroupId(u.gid)
}

// HomeFolder returns the configured home folder of the user.
func (idm *MemIdm) HomeFolder(name string, token compat.Token) (string, error) {
	idm.usrMu.RLock()
	defer idm.usrMu.RUnlock()

	path, ok := idm.homeFolders[localName(name)]
	if !ok {
		return "", compat.NewCompatError(compat.EventHomeFolderFailed,
			"Failed to get home folder for user '"+name+"'.")
	}

	return path, nil
}

// Backend wraps a MemIdm as a credential backend.
type Backend struct {
	idm  *MemIdm
	name string
}

// NewBackend returns a credential backend named name checking against idm.
func NewBackend(idm *MemIdm, name string) *Backend {
	return &Backend{idm: idm, name: name}
}

func (b *Backend) Name() string {
	return b.name
}

// Authenticate rejects a wrong password for a known user and has no opinion
// on unknown users.
func (b *Backend) Authenticate(username, password string) (compat.Decision, compat.Token, error) {
	b.idm.usrMu.RLock()
	defer b.idm.usrMu.RUnlock()

	stored, ok := b.idm.passwords[localName(username)]
	if !ok {
		return compat.DecisionUnknown, compat.NoToken, nil
	}

	if stored == password {
		return compat.DecisionAccept, compat.NoToken, nil
	}

	return compat.DecisionReject, compat.NoToken, nil
}

// Exists returns true if the store knows the account.
func (b *Backend) Exists(username string) (bool, error) {
	return b.idm.UserExists(username), nil
}
