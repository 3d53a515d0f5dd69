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

package compat

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// VirtualFolder maps a logical mount point onto a real path. The real path
// is allowed to not exist on the real file system.
type VirtualFolder struct {
	Segments []string `yaml:"virtual"`
	RealPath string   `yaml:"real"`
}

// Avatar binds a security identity to a file system view for one logical
// session. All fields are read only after construction, except the lazily
// resolved identity which is cached on first use.
type Avatar struct {
	name             string
	homeFolderPath   string
	rootFolderPath   string
	lockInHomeFolder bool
	useImpersonation bool
	token            Token
	virtualFolders   []VirtualFolder
	sessionID        uuid.UUID

	resolveOnce sync.Once
	identity    Identity
	identityErr error
}

// AvatarOption configures an Avatar at construction time.
type AvatarOption func(*Avatar) error

// NewAvatar returns a new immutable Avatar for the account identified by
// name, which may be given in "user@domain" form.
func NewAvatar(name string, opts ...AvatarOption) (*Avatar, error) {
	if name == "" {
		return nil, InvalidArgumentError("Avatar name can't be empty.")
	}

	a := &Avatar{
		name:      name,
		sessionID: uuid.New(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// WithHomeFolder sets the avatar's home folder real path.
func WithHomeFolder(path string) AvatarOption {
	return func(a *Avatar) error {
		a.homeFolderPath = path

		return nil
	}
}

// WithRootFolder sets the real path constraining all resolved paths.
func WithRootFolder(path string) AvatarOption {
	return func(a *Avatar) error {
		a.rootFolderPath = path

		return nil
	}
}

// WithLockedHomeFolder confines all operations beneath the home folder.
func WithLockedHomeFolder() AvatarOption {
	return func(a *Avatar) error {
		a.lockInHomeFolder = true

		return nil
	}
}

// WithImpersonation requires all operations under this avatar to run under
// the avatar's switched identity.
func WithImpersonation() AvatarOption {
	return func(a *Avatar) error {
		a.useImpersonation = true

		return nil
	}
}

// WithToken attaches a platform credential handle to the avatar.
func WithToken(token Token) AvatarOption {
	return func(a *Avatar) error {
		a.token = token

		return nil
	}
}

// WithVirtualFolders sets the avatar's virtual folder table.
func WithVirtualFolders(folders ...VirtualFolder) AvatarOption {
	return func(a *Avatar) error {
		for _, vf := range folders {
			if len(vf.Segments) == 0 {
				return InvalidArgumentError("Virtual folder requires at least one segment.")
			}

			for _, seg := range vf.Segments {
				if seg == "" || seg == "." || seg == ".." {
					return InvalidArgumentError("Invalid virtual folder segment: '" + seg + "'.")
				}
			}

			if vf.RealPath == "" {
				return InvalidArgumentError("Virtual folder requires a real path.")
			}
		}

		a.virtualFolders = append([]VirtualFolder(nil), folders...)

		return nil
	}
}

func (a *Avatar) Name() string             { return a.name }
func (a *Avatar) HomeFolderPath() string   { return a.homeFolderPath }
func (a *Avatar) RootFolderPath() string   { return a.rootFolderPath }
func (a *Avatar) LockInHomeFolder() bool   { return a.lockInHomeFolder }
func (a *Avatar) UseImpersonation() bool   { return a.useImpersonation }
func (a *Avatar) Token() Token             { return a.token }
func (a *Avatar) SessionID() uuid.UUID     { return a.sessionID }

// VirtualFolders returns a copy of the avatar's virtual folder table.
func (a *Avatar) VirtualFolders() []VirtualFolder {
	return append([]VirtualFolder(nil), a.virtualFolders...)
}

// LocalName returns the account name stripped of any "@domain" suffix.
func (a *Avatar) LocalName() string {
	name, _, _ := strings.Cut(a.name, "@")

	return name
}

// Domain returns the domain part of the account name, or "" for local
// accounts.
func (a *Avatar) Domain() string {
	_, domain, _ := strings.Cut(a.name, "@")

	return domain
}

// ResolvedIdentity resolves and caches the avatar's platform identity.
// The first failure is cached as well: a broken avatar stays broken.
func (a *Avatar) ResolvedIdentity(resolver IdentityResolver) (Identity, error) {
	a.resolveOnce.Do(func() {
		u, err := resolver.LookupUser(a.LocalName())
		if err != nil {
			a.identityErr = NewCompatError(EventImpersonationFailed,
				"Failed to impersonate user '"+a.name+"'.").WithDetails(err.Error())

			return
		}

		a.identity = Identity{
			Name:  a.name,
			UID:   u.Uid(),
			GID:   u.Gid(),
			Token: a.token,
		}
	})

	return a.identity, a.identityErr
}
