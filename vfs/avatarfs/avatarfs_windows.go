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
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/windows"

	"github.com/chevah/compat"
	"github.com/chevah/compat/privilege"
)

// Numeric owner ids and node identifiers are not tracked here. Owner and
// group membership go through security identifiers instead.
func fillSysAttributes(attrs *FileAttributes, info fs.FileInfo) {
}

func isFileSystemRoot(path string) bool {
	if path == `\` {
		return true
	}

	return len(path) == 3 && path[1] == ':' && path[2] == '\\'
}

// clearReadOnly drops the read only attribute of path when set.
func clearReadOnly(path string) error {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}

	attrs, err := windows.GetFileAttributes(ptr)
	if err != nil {
		return err
	}

	if attrs&windows.FILE_ATTRIBUTE_READONLY == 0 {
		return nil
	}

	return windows.SetFileAttributes(ptr, attrs&^windows.FILE_ATTRIBUTE_READONLY)
}

// removeEntry removes path, retrying exactly once with the read only
// attribute cleared after a permission error.
func removeEntry(path string) error {
	err := os.Remove(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}

	if clearErr := clearReadOnly(path); clearErr != nil {
		return err
	}

	return os.Remove(path)
}

// removeTree removes the tree at path. A permission error on a read only
// entry clears the attribute on the offending path and retries once.
func removeTree(path string) error {
	err := os.RemoveAll(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}

	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		return err
	}

	if clearErr := clearReadOnly(pathErr.Path); clearErr != nil {
		return err
	}

	return os.RemoveAll(path)
}

func accountSid(name string) (*windows.SID, error) {
	sid, _, _, err := windows.LookupSID("", name)

	return sid, err
}

func setOwnerPath(path string, user compat.UserReader) error {
	sid, err := accountSid(user.Name())
	if err != nil {
		return err
	}

	// Taking ownership on behalf of another account needs the restore and
	// take ownership privileges.
	err = privilege.EnablePrivileges("SeRestorePrivilege", "SeTakeOwnershipPrivilege")
	if err != nil {
		return err
	}

	return windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.OWNER_SECURITY_INFORMATION, sid, nil, nil, nil)
}

func addGroupPath(path string, group compat.GroupReader) error {
	return editGroupAccess(path, group.Name(), windows.GRANT_ACCESS)
}

func removeGroupPath(path string, group compat.GroupReader) error {
	return editGroupAccess(path, group.Name(), windows.REVOKE_ACCESS)
}

// editGroupAccess merges one grant or revoke entry for the named group
// into the discretionary access list of path.
func editGroupAccess(path, group string, mode windows.ACCESS_MODE) error {
	sid, err := accountSid(group)
	if err != nil {
		return err
	}

	sd, err := windows.GetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION)
	if err != nil {
		return err
	}

	oldACL, _, err := sd.DACL()
	if err != nil {
		return err
	}

	entry := windows.EXPLICIT_ACCESS{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        mode,
		Inheritance:       windows.SUB_CONTAINERS_AND_OBJECTS_INHERIT,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_GROUP,
			TrusteeValue: windows.TrusteeValueFromSID(sid),
		},
	}

	newACL, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{entry}, oldACL)
	if err != nil {
		return err
	}

	return windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION, nil, nil, newACL, nil)
}

func makeSymlink(target, link string) error {
	err := privilege.EnablePrivileges("SeCreateSymbolicLinkPrivilege")
	if err != nil {
		return err
	}

	return os.Symlink(target, link)
}
