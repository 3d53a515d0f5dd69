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

package privilege

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/chevah/compat"
)

// osSwitcher switches the process effective uid/gid. The saved set-user-id
// is kept at its start value so a root-started process can always switch
// back and forth.
type osSwitcher struct {
	def compat.Identity
}

func newOsSwitcher() Switcher {
	return &osSwitcher{
		def: compat.Identity{
			Name: "process",
			UID:  unix.Geteuid(),
			GID:  unix.Getegid(),
		},
	}
}

func (sw *osSwitcher) Current() compat.Identity {
	return compat.Identity{
		UID: unix.Geteuid(),
		GID: unix.Getegid(),
	}
}

func (sw *osSwitcher) ProcessDefault() compat.Identity {
	return sw.def
}

// ThreadLocal is false: seteuid applies to the whole process on every
// supported platform.
func (sw *osSwitcher) ThreadLocal() bool {
	return false
}

func (sw *osSwitcher) Switch(id compat.Identity) error {
	curUID := unix.Geteuid()
	curGID := unix.Getegid()

	if curUID == id.UID && curGID == id.GID {
		return nil
	}

	// Regain root first: switching between two unprivileged identities is
	// only permitted from euid 0.
	if curUID != 0 {
		if err := unix.Setresuid(-1, 0, -1); err != nil {
			return fmt.Errorf("can't elevate to root: %w", err)
		}
	}

	if curGID != id.GID {
		if err := unix.Setresgid(-1, id.GID, -1); err != nil {
			// Drop back to where we came from before reporting.
			_ = unix.Setresuid(-1, curUID, -1)

			return fmt.Errorf("can't change gid to %d: %w", id.GID, err)
		}
	}

	if id.UID != 0 {
		if err := unix.Setresuid(-1, id.UID, -1); err != nil {
			_ = unix.Setresgid(-1, curGID, -1)
			_ = unix.Setresuid(-1, curUID, -1)

			return fmt.Errorf("can't change uid to %d: %w", id.UID, err)
		}
	}

	return nil
}
