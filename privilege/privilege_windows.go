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

package privilege

import (
	"golang.org/x/sys/windows"

	"github.com/chevah/compat"
)

// osSwitcher impersonates a logon token on the calling thread. The identity
// with NoToken denotes the process's own security context.
type osSwitcher struct {
	def compat.Identity
}

func newOsSwitcher() Switcher {
	return &osSwitcher{
		def: compat.Identity{Name: "process", Token: compat.NoToken},
	}
}

// Current returns the process default identity: a thread that is not inside
// a context is never left impersonated.
func (sw *osSwitcher) Current() compat.Identity {
	return sw.def
}

func (sw *osSwitcher) ProcessDefault() compat.Identity {
	return sw.def
}

// ThreadLocal is true: impersonation replaces the calling thread's token
// only.
func (sw *osSwitcher) ThreadLocal() bool {
	return true
}

func (sw *osSwitcher) Switch(id compat.Identity) error {
	if id.Token == compat.NoToken {
		return windows.RevertToSelf()
	}

	if err := EnablePrivileges("SeImpersonatePrivilege"); err != nil {
		return err
	}

	return windows.ImpersonateLoggedOnUser(windows.Token(id.Token))
}

// EnablePrivileges enables the named privileges on the process token.
// A privilege that is not held at all yields an AdjustPrivilegeError naming
// it.
func EnablePrivileges(names ...string) error {
	var token windows.Token

	err := windows.OpenProcessToken(windows.CurrentProcess(),
		windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return &AdjustPrivilegeError{Privilege: names[0], Err: err}
	}
	defer token.Close()

	for _, name := range names {
		var luid windows.LUID

		err = windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr(name), &luid)
		if err != nil {
			return &AdjustPrivilegeError{Privilege: name, Err: err}
		}

		tp := windows.Tokenprivileges{PrivilegeCount: 1}
		tp.Privileges[0] = windows.LUIDAndAttributes{
			Luid:       luid,
			Attributes: windows.SE_PRIVILEGE_ENABLED,
		}

		err = windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil)
		if err != nil {
			return &AdjustPrivilegeError{Privilege: name, Err: err}
		}

		// AdjustTokenPrivileges succeeds even when the privilege is absent
		// from the token; the failure is only visible in the last error.
		if lastErr := windows.GetLastError(); lastErr == windows.ERROR_NOT_ALL_ASSIGNED {
			return &AdjustPrivilegeError{Privilege: name, Err: lastErr}
		}
	}

	return nil
}
