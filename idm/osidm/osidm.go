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

// Package osidm resolves user and group names against the operating system
// account databases.
package osidm

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chevah/compat"
)

// OsIdm is the platform identity resolver. Lookups go through the OS account
// database and are cached: the accounts an avatar resolves to are stable for
// the lifetime of its session.
type OsIdm struct {
	userCache  *xsync.MapOf[string, *OsUser]
	groupCache *xsync.MapOf[string, *OsGroup]
}

// OsUser is a user of the OS account database.
type OsUser struct {
	name   string
	uid    int
	gid    int
	groups []int // all group ids the user is a member of.
}

func (u *OsUser) Name() string { return u.name }
func (u *OsUser) Uid() int     { return u.uid }
func (u *OsUser) Gid() int     { return u.gid }

// IsAdmin returns true if the user has administrator (root) privileges.
func (u *OsUser) IsAdmin() bool {
	return u.uid == adminUid
}

// OsGroup is a group of the OS account database.
type OsGroup struct {
	name string
	gid  int
}

func (g *OsGroup) Name() string { return g.name }
func (g *OsGroup) Gid() int     { return g.gid }

// New returns a new OS identity resolver.
func New() *OsIdm {
	return &OsIdm{
		userCache:  xsync.NewMapOf[string, *OsUser](),
		groupCache: xsync.NewMapOf[string, *OsGroup](),
	}
}

// localName strips a "@domain" suffix from an account name.
func localName(name string) string {
	local, _, _ := strings.Cut(name, "@")

	return local
}

// LookupUser looks up a user by name, accepting "user@domain" form.
func (idm *OsIdm) LookupUser(name string) (compat.UserReader, error) {
	u, err := idm.lookupUser(localName(name))
	if err != nil {
		return nil, err
	}

	return u, nil
}

// LookupGroup looks up a group by name.
func (idm *OsIdm) LookupGroup(name string) (compat.GroupReader, error) {
	g, err := idm.lookupGroup(name)
	if err != nil {
		return nil, err
	}

	return g, nil
}

// UserExists returns true if name denotes a known account. It never fails:
// empty or malformed names return false.
func (idm *OsIdm) UserExists(name string) bool {
	if name == "" || strings.ContainsRune(name, 0) {
		return false
	}

	_, err := idm.lookupUser(localName(name))

	return err == nil
}

// GroupForUser returns the first candidate group the user belongs to, either
// by primary group id or by explicit membership. Candidates are checked in
// the given order.
func (idm *OsIdm) GroupForUser(name string, candidates []string) (compat.GroupReader, error) {
	if len(candidates) == 0 {
		return nil, compat.InvalidArgumentError("Groups for validation can't be empty.")
	}

	u, err := idm.lookupUser(localName(name))
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
func (idm *OsIdm) PrimaryGroup(name string) (compat.GroupReader, error) {
	u, err := idm.lookupUser(localName(name))
	if err != nil {
		return nil, compat.NewCompatError(compat.EventPrimaryGroupFailed,
			"Failed to get primary group for user '"+name+"'.").WithDetails(err.Error())
	}

	g, err := idm.LookupGroupId(u.gid)
	if err != nil {
		return nil, compat.NewCompatError(compat.EventPrimaryGroupFailed,
			"Failed to get primary group for user '"+name+"'.").WithDetails(err.Error())
	}

	return g, nil
}
