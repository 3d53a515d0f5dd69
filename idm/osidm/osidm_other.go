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

//go:build !linux && !darwin && !windows

package osidm

import "github.com/chevah/compat"

const adminUid = 0

func (idm *OsIdm) lookupUser(name string) (*OsUser, error) {
	return nil, compat.UnknownUserError(name)
}

func (idm *OsIdm) lookupGroup(name string) (*OsGroup, error) {
	return nil, compat.UnknownGroupError(name)
}

func (idm *OsIdm) LookupUserId(uid int) (compat.UserReader, error) {
	return nil, compat.UnknownUserIdError(uid)
}

func (idm *OsIdm) LookupGroupId(gid int) (compat.GroupReader, error) {
	return nil, compat.UnknownGroupIdError(gid)
}

func (idm *OsIdm) HomeFolder(name string, token compat.Token) (string, error) {
	return "", compat.NewCompatError(compat.EventHomeFolderFailed,
		"Failed to get home folder for user '"+name+"'.")
}

// NativeBackend is not available on this platform.
type NativeBackend struct {
	idm *OsIdm
}

func NewNativeBackend(idm *OsIdm) *NativeBackend {
	return &NativeBackend{idm: idm}
}

func (b *NativeBackend) Name() string {
	return "os-native"
}

func (b *NativeBackend) Authenticate(username, password string) (compat.Decision, compat.Token, error) {
	return compat.DecisionUnknown, compat.NoToken, nil
}

func (b *NativeBackend) Exists(username string) (bool, error) {
	return false, nil
}
