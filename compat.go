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

// Package compat defines the types, interfaces and errors shared by all
// components of the OS compatibility layer: capability detection, identity
// resolution, privilege switching and the avatar file system.
package compat

import "io/fs"

const (
	// DefaultFilePerm is the permission used when creating files on behalf of an avatar.
	DefaultFilePerm = fs.FileMode(0o600)

	// DefaultFolderPerm is the permission used when creating folders on behalf of an avatar.
	DefaultFolderPerm = fs.FileMode(0o777)

	// VirtualFolderPerm is the permission reported for folders that only exist
	// in an avatar's virtual folder table.
	VirtualFolderPerm = fs.FileMode(0o555)

	// NotImplemented is the return string of a non-implemented feature.
	NotImplemented = "not implemented"
)

// Token is an opaque platform credential handle. On Windows it holds a logon
// token, on POSIX systems it is always NoToken.
type Token uintptr

// NoToken is the zero Token, denoting the process's own security context.
const NoToken Token = 0

// Identity is the effective identity used by the OS to authorize an
// operation: a uid/gid pair on POSIX, a security token on Windows.
type Identity struct {
	Name  string
	UID   int
	GID   int
	Token Token
}

// SameAs reports whether two identities resolve to the same effective
// security context.
func (id Identity) SameAs(other Identity) bool {
	if CurrentOSType() == OsWindows {
		return id.Token == other.Token
	}

	return id.UID == other.UID && id.GID == other.GID
}

// Namer is the interface that wraps the Name method.
type Namer interface {
	Name() string
}

// GroupIdentifier is the interface that wraps the Gid method.
type GroupIdentifier interface {
	// Gid returns the primary group id.
	Gid() int
}

// UserIdentifier is the interface that wraps the Uid method.
type UserIdentifier interface {
	// Uid returns the user id.
	Uid() int
}

// GroupReader interface reads group information.
type GroupReader interface {
	GroupIdentifier
	Namer
}

// UserReader reads user information.
type UserReader interface {
	GroupIdentifier
	UserIdentifier
	Namer

	// IsAdmin returns true if the user has administrator (root) privileges.
	IsAdmin() bool
}

// IdentityResolver maps user and group names to platform identity data.
// Implementations must accept names in "user@domain" form; the domain part is
// ignored on platforms without domain accounts.
type IdentityResolver interface {
	// LookupUser looks up a user by name.
	// If the user cannot be found, the returned error is of type UnknownUserError.
	LookupUser(name string) (UserReader, error)

	// LookupUserId looks up a user by userid.
	// If the user cannot be found, the returned error is of type UnknownUserIdError.
	LookupUserId(uid int) (UserReader, error)

	// LookupGroup looks up a group by name.
	// If the group is not found, the returned error is of type UnknownGroupError.
	LookupGroup(name string) (GroupReader, error)

	// LookupGroupId looks up a group by groupid.
	// If the group is not found, the returned error is of type UnknownGroupIdError.
	LookupGroupId(gid int) (GroupReader, error)

	// UserExists returns true if name denotes a known account.
	// It never fails: empty or malformed names return false.
	UserExists(name string) bool

	// GroupForUser returns the first group of candidates for which the user
	// identified by name is a member, either by primary group id or by
	// explicit membership. It returns an InvalidArgumentError when candidates
	// is empty and an UnknownGroupError when no candidate matches.
	GroupForUser(name string, candidates []string) (GroupReader, error)

	// PrimaryGroup returns the primary group of the user identified by name.
	PrimaryGroup(name string) (GroupReader, error)

	// HomeFolder returns the home folder of the user identified by name.
	// On Windows a token obtained for the same account is required unless
	// name denotes the current process identity.
	HomeFolder(name string, token Token) (string, error)
}

// Decision is the outcome of a credential check.
type Decision int8

const (
	// DecisionUnknown means the backend has no opinion on the credentials.
	DecisionUnknown Decision = iota

	// DecisionAccept means the backend validated the credentials.
	DecisionAccept

	// DecisionReject means the backend explicitly rejected the credentials.
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// CredentialBackend validates credentials against one account store.
type CredentialBackend interface {
	Namer

	// Authenticate checks username and password against the backend store.
	// DecisionUnknown means the backend could not decide, not a rejection.
	Authenticate(username, password string) (Decision, Token, error)

	// Exists returns true if the backend knows an account named username.
	Exists(username string) (bool, error)
}
