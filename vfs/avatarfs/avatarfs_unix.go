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

package avatarfs

import (
	"io/fs"
	"os"
	"syscall"

	"github.com/chevah/compat"
)

func fillSysAttributes(attrs *FileAttributes, info fs.FileInfo) {
	sst, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}

	attrs.NodeID = sst.Ino
	attrs.HardLinks = uint64(sst.Nlink)
	attrs.UID = int(sst.Uid)
	attrs.GID = int(sst.Gid)
}

func isFileSystemRoot(path string) bool {
	return path == "/"
}

func removeEntry(path string) error {
	return os.Remove(path)
}

func removeTree(path string) error {
	return os.RemoveAll(path)
}

func setOwnerPath(path string, user compat.UserReader) error {
	return os.Chown(path, user.Uid(), -1)
}

func addGroupPath(path string, group compat.GroupReader) error {
	return os.Chown(path, -1, group.Gid())
}

// A file has exactly one owning group here, there is no access list to
// revoke an entry from. The group name was already validated.
func removeGroupPath(path string, group compat.GroupReader) error {
	return nil
}

func makeSymlink(target, link string) error {
	return os.Symlink(target, link)
}
