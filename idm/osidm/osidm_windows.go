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

//go:build windows

package osidm

import (
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/chevah/compat"
	"github.com/chevah/compat/privilege"
)

// The builtin Administrator account RID.
const adminUid = 500

// Windows has no numeric primary group in user records: local accounts
// default to the Users group RID.
const defaultGroupRid = 545

var (
	advapi32         = windows.NewLazySystemDLL("advapi32.dll")
	userenv          = windows.NewLazySystemDLL("userenv.dll")
	procLogonUserW   = advapi32.NewProc("LogonUserW")
	procCreateProfile = userenv.NewProc("CreateProfile")
)

const (
	logon32LogonNetwork    = 3
	logon32ProviderDefault = 0
)

func (idm *OsIdm) lookupUser(name string) (*OsUser, error) {
	if u, ok := idm.userCache.Load(name); ok {
		return u, nil
	}

	sid, accType, err := lookupSid(name)
	if err != nil || !isUserType(accType) {
		return nil, compat.UnknownUserError(name)
	}

	u := &OsUser{
		name: name,
		uid:  sidRid(sid),
		gid:  defaultGroupRid,
	}

	idm.userCache.Store(name, u)

	return u, nil
}

func (idm *OsIdm) lookupGroup(name string) (*OsGroup, error) {
	if g, ok := idm.groupCache.Load(name); ok {
		return g, nil
	}

	sid, accType, err := lookupSid(name)
	if err != nil || !isGroupType(accType) {
		return nil, compat.UnknownGroupError(name)
	}

	g := &OsGroup{name: name, gid: sidRid(sid)}
	idm.groupCache.Store(name, g)

	return g, nil
}

// LookupUserId is not supported on Windows: accounts have SIDs, not stable
// numeric ids.
func (idm *OsIdm) LookupUserId(uid int) (compat.UserReader, error) {
	return nil, compat.UnknownUserIdError(uid)
}

// LookupGroupId is not supported on Windows.
func (idm *OsIdm) LookupGroupId(gid int) (compat.GroupReader, error) {
	return nil, compat.UnknownGroupIdError(gid)
}

// HomeFolder returns the profile folder for the account identified by name.
// Without a token only the current process account may be requested. A
// missing profile folder is provisioned once before failing permanently.
func (idm *OsIdm) HomeFolder(name string, token compat.Token) (string, error) {
	if err := privilege.EnablePrivileges("SeBackupPrivilege", "SeRestorePrivilege"); err != nil {
		return "", homeFolderError(name, err)
	}

	if token == compat.NoToken {
		ownName, err := currentAccountName()
		if err != nil {
			return "", homeFolderError(name, err)
		}

		if !strings.EqualFold(localName(name), ownName) {
			return "", homeFolderError(name, nil)
		}

		var procToken windows.Token

		err = windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &procToken)
		if err != nil {
			return "", homeFolderError(name, err)
		}
		defer procToken.Close()

		return profileDirectory(name, procToken)
	}

	winToken := windows.Token(token)

	tokenName, err := tokenAccountName(winToken)
	if err != nil {
		return "", homeFolderError(name, err)
	}

	if !strings.EqualFold(localName(name), tokenName) {
		return "", homeFolderError(name, nil)
	}

	return profileDirectory(name, winToken)
}

func profileDirectory(name string, token windows.Token) (string, error) {
	dir, err := token.GetUserProfileDirectory()
	if err == nil {
		return dir, nil
	}

	// The account may never have logged on: provision the profile once.
	if cerr := createProfile(name, token); cerr != nil {
		return "", homeFolderError(name, err)
	}

	dir, err = token.GetUserProfileDirectory()
	if err != nil {
		return "", homeFolderError(name, err)
	}

	return dir, nil
}

func createProfile(name string, token windows.Token) error {
	tu, err := token.GetTokenUser()
	if err != nil {
		return err
	}

	sidText, err := tu.User.Sid.String()
	if err != nil {
		return err
	}

	pathBuf := make([]uint16, windows.MAX_PATH)

	hr, _, _ := procCreateProfile.Call(
		uintptr(unsafe.Pointer(windows.StringToUTF16Ptr(sidText))),
		uintptr(unsafe.Pointer(windows.StringToUTF16Ptr(localName(name)))),
		uintptr(unsafe.Pointer(&pathBuf[0])),
		uintptr(len(pathBuf)),
	)
	if hr != 0 {
		return syscall.Errno(hr)
	}

	return nil
}

func homeFolderError(name string, err error) error {
	ce := compat.NewCompatError(compat.EventHomeFolderFailed,
		"Failed to get home folder for user '"+name+"'.")
	if err != nil {
		return ce.WithDetails(err.Error())
	}

	return ce
}

func lookupSid(name string) (*windows.SID, uint32, error) {
	var (
		sidLen    uint32
		domainLen uint32
		accType   uint32
	)

	nameP := windows.StringToUTF16Ptr(localName(name))

	_ = windows.LookupAccountName(nil, nameP, nil, &sidLen, nil, &domainLen, &accType)
	if sidLen == 0 {
		return nil, 0, compat.UnknownUserError(name)
	}

	sidBuf := make([]byte, sidLen)
	domain := make([]uint16, domainLen)
	sid := (*windows.SID)(unsafe.Pointer(&sidBuf[0]))

	err := windows.LookupAccountName(nil, nameP, sid, &sidLen, &domain[0], &domainLen, &accType)
	if err != nil {
		return nil, 0, err
	}

	return sid, accType, nil
}

func sidRid(sid *windows.SID) int {
	count := sid.SubAuthorityCount()
	if count == 0 {
		return 0
	}

	return int(sid.SubAuthority(uint32(count - 1)))
}

func isUserType(accType uint32) bool {
	return accType == windows.SidTypeUser
}

func isGroupType(accType uint32) bool {
	switch accType {
	case windows.SidTypeGroup, windows.SidTypeAlias, windows.SidTypeWellKnownGroup:
		return true
	default:
		return false
	}
}

func currentAccountName() (string, error) {
	var token windows.Token

	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token)
	if err != nil {
		return "", err
	}
	defer token.Close()

	return tokenAccountName(token)
}

func tokenAccountName(token windows.Token) (string, error) {
	tu, err := token.GetTokenUser()
	if err != nil {
		return "", err
	}

	account, _, _, err := tu.User.Sid.LookupAccount("")
	if err != nil {
		return "", err
	}

	return account, nil
}

// NativeBackend checks credentials against the Windows account database
// through LogonUser, which gives a definitive answer and a usable token.
type NativeBackend struct {
	idm *OsIdm
}

// NewNativeBackend returns the native credential backend.
func NewNativeBackend(idm *OsIdm) *NativeBackend {
	return &NativeBackend{idm: idm}
}

func (b *NativeBackend) Name() string {
	return "windows-native"
}

// Authenticate calls LogonUser with the network logon type. A logon failure
// is a definitive rejection; any other error leaves the decision unknown.
func (b *NativeBackend) Authenticate(username, password string) (compat.Decision, compat.Token, error) {
	name, domain, _ := strings.Cut(username, "@")
	if domain == "" {
		domain = "."
	}

	var token windows.Token

	r1, _, lastErr := procLogonUserW.Call(
		uintptr(unsafe.Pointer(windows.StringToUTF16Ptr(name))),
		uintptr(unsafe.Pointer(windows.StringToUTF16Ptr(domain))),
		uintptr(unsafe.Pointer(windows.StringToUTF16Ptr(password))),
		uintptr(logon32LogonNetwork),
		uintptr(logon32ProviderDefault),
		uintptr(unsafe.Pointer(&token)),
	)
	if r1 == 0 {
		if lastErr == windows.ERROR_LOGON_FAILURE {
			return compat.DecisionReject, compat.NoToken, nil
		}

		return compat.DecisionUnknown, compat.NoToken, lastErr
	}

	return compat.DecisionAccept, compat.Token(token), nil
}

// Exists returns true if the account database knows the account.
func (b *NativeBackend) Exists(username string) (bool, error) {
	return b.idm.UserExists(username), nil
}
