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

package avatarfs

import (
	"errors"
	"io/fs"
	"os"

	"github.com/chevah/compat"
)

func fillSysAttributes(attrs *FileAttributes, info fs.FileInfo) {
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
	return errors.ErrUnsupported
}

func addGroupPath(path string, group compat.GroupReader) error {
	return errors.ErrUnsupported
}

func removeGroupPath(path string, group compat.GroupReader) error {
	return errors.ErrUnsupported
}

func makeSymlink(target, link string) error {
	return errors.ErrUnsupported
}
