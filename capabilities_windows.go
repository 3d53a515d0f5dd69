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

package compat

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Privileges required by the Windows capability checks.
const (
	privImpersonate   = "SeImpersonatePrivilege"
	privBackup        = "SeBackupPrivilege"
	privRestore       = "SeRestorePrivilege"
	privSymbolicLinks = "SeCreateSymbolicLinkPrivilege"
)

// Home folder discovery uses the profile API, available since Vista.
const minHomeFolderMajorVersion = 6

func detectCapabilities() CapabilitySet {
	caps := CapabilitySet{Distribution: "windows"}

	held := heldPrivileges()

	caps.CanImpersonateLocalAccount = held[privImpersonate]
	caps.SupportsSymbolicLinks = held[privSymbolicLinks]

	if windows.RtlGetVersion().MajorVersion >= minHomeFolderMajorVersion {
		caps.CanGetHomeFolder = held[privBackup] && held[privRestore]
		caps.CanCreateHomeFolder = caps.CanGetHomeFolder
	}

	return caps
}

// heldPrivileges returns the named privileges present in the process token,
// enabled or not. Detection failures yield an empty set, never an error.
func heldPrivileges() map[string]bool {
	held := map[string]bool{}

	var token windows.Token

	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token)
	if err != nil {
		return held
	}
	defer token.Close()

	var size uint32

	_ = windows.GetTokenInformation(token, windows.TokenPrivileges, nil, 0, &size)
	if size == 0 {
		return held
	}

	buf := make([]byte, size)

	err = windows.GetTokenInformation(token, windows.TokenPrivileges, &buf[0], size, &size)
	if err != nil {
		return held
	}

	tokenPrivs := (*windows.Tokenprivileges)(unsafe.Pointer(&buf[0]))

	byLuid := map[windows.LUID]bool{}
	for _, pa := range tokenPrivs.AllPrivileges() {
		byLuid[pa.Luid] = true
	}

	for _, name := range []string{privImpersonate, privBackup, privRestore, privSymbolicLinks} {
		var luid windows.LUID

		err = windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr(name), &luid)
		if err != nil {
			continue
		}

		if byLuid[luid] {
			held[name] = true
		}
	}

	return held
}
