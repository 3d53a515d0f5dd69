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

package avatarfs

import (
	"github.com/chevah/compat"
	"github.com/chevah/compat/idm/osidm"
	"github.com/chevah/compat/privilege"
	"github.com/chevah/compat/vpath"
)

// Option configures an AvatarFS.
type Option func(*AvatarFS)

// WithIdentityResolver sets the identity resolver used for owner and group
// operations. The default is the OS identity manager.
func WithIdentityResolver(idm compat.IdentityResolver) Option {
	return func(vfs *AvatarFS) {
		vfs.idm = idm
	}
}

// WithPrivilegeManager sets the manager used to impersonate the avatar.
// Pass a shared manager when several file systems serve avatars of
// different identities.
func WithPrivilegeManager(mgr *privilege.Manager) Option {
	return func(vfs *AvatarFS) {
		vfs.privMgr = mgr
	}
}

// New returns a file system bound to avatar. The avatar's virtual folder
// table is validated against the real file system before any operation is
// accepted.
func New(avatar *compat.Avatar, opts ...Option) (*AvatarFS, error) {
	vfs := &AvatarFS{
		avatar: avatar,
		logger: compat.Logger("avatarfs"),
	}

	for _, opt := range opts {
		opt(vfs)
	}

	if vfs.idm == nil {
		vfs.idm = osidm.New()
	}

	if vfs.privMgr == nil {
		vfs.privMgr = privilege.NewManager()
	}

	resolver, err := vpath.New(avatar)
	if err != nil {
		return nil, err
	}

	vfs.resolver = resolver

	vfs.logger.Debug().
		Str("avatar", avatar.Name()).
		Str("session", avatar.SessionID().String()).
		Str("base", resolver.BasePath()).
		Msg("file system created")

	return vfs, nil
}

// Avatar returns the avatar this file system serves.
func (vfs *AvatarFS) Avatar() *compat.Avatar {
	return vfs.avatar
}

// Resolver returns the avatar's path resolver.
func (vfs *AvatarFS) Resolver() *vpath.Resolver {
	return vfs.resolver
}
