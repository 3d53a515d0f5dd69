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
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chevah/compat"
)

func newTestFS(t *testing.T, opts ...compat.AvatarOption) (*AvatarFS, string) {
	t.Helper()

	base := t.TempDir()

	options := append([]compat.AvatarOption{compat.WithRootFolder(base)}, opts...)

	avatar, err := compat.NewAvatar("fs-user", options...)
	require.NoError(t, err)

	vfs, err := New(avatar)
	require.NoError(t, err)

	return vfs, base
}

func TestVirtualFolderIsReported(t *testing.T) {
	vfs, _ := newTestFS(t, compat.WithVirtualFolders(compat.VirtualFolder{
		Segments: []string{"reports"},
		RealPath: filepath.Join(t.TempDir(), "does", "not", "exist"),
	}))

	// The virtual folder exists even though its target does not.
	assert.True(t, vfs.Exists([]string{"reports"}))
	assert.True(t, vfs.IsFolder([]string{"reports"}))
	assert.False(t, vfs.IsFile([]string{"reports"}))

	attrs, err := vfs.GetAttributes([]string{"reports"})
	require.NoError(t, err)
	assert.Equal(t, "reports", attrs.Name)
	assert.Zero(t, attrs.Size)
	assert.True(t, attrs.IsFolder)
	assert.Equal(t, compat.VirtualFolderPerm|fs.ModeDir, attrs.Mode)
	assert.Equal(t,
		time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		attrs.ModTime)

	content, err := vfs.GetFolderContent(nil)
	require.NoError(t, err)

	names := make([]string, len(content))
	for i, a := range content {
		names[i] = a.Name
	}

	assert.Contains(t, names, "reports")
}

func TestCreateFolderBelowVirtualTarget(t *testing.T) {
	target := t.TempDir()
	missing := filepath.Join(target, "gone")

	vfs, _ := newTestFS(t, compat.WithVirtualFolders(compat.VirtualFolder{
		Segments: []string{"reports"},
		RealPath: missing,
	}))

	// The real ancestor does not exist yet: the OS error surfaces.
	err := vfs.CreateFolder([]string{"reports", "x"})
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	// Once the ancestor exists the operation lands on the real target.
	require.NoError(t, os.Mkdir(missing, 0o700))
	require.NoError(t, vfs.CreateFolder([]string{"reports", "x"}))

	info, err := os.Stat(filepath.Join(missing, "x"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestVirtualFolderMutationForbidden(t *testing.T) {
	vfs, _ := newTestFS(t, compat.WithVirtualFolders(compat.VirtualFolder{
		Segments: []string{"srv", "reports"},
		RealPath: t.TempDir(),
	}))

	err := vfs.CreateFolder([]string{"srv", "reports"})
	assert.True(t, compat.IsCompatError(err, compat.EventVirtualPathReadOnly))

	err = vfs.DeleteFolder([]string{"srv"}, true)
	assert.True(t, compat.IsCompatError(err, compat.EventVirtualPathReadOnly))
}

func TestBrokenVirtualPathReportsNonExistence(t *testing.T) {
	vfs, _ := newTestFS(t, compat.WithVirtualFolders(compat.VirtualFolder{
		Segments: []string{"broken"},
		RealPath: "not-an-absolute-path",
	}))

	// The mount point itself is virtual, so it exists.
	assert.True(t, vfs.Exists([]string{"broken"}))

	// Content below the broken mapping reports non existence.
	assert.False(t, vfs.Exists([]string{"broken", "x"}))
}

func TestDeleteRootForbidden(t *testing.T) {
	avatar, err := compat.NewAvatar("fs-user")
	require.NoError(t, err)

	vfs, err := New(avatar)
	require.NoError(t, err)

	err = vfs.DeleteFolder(nil, true)
	assert.True(t, compat.IsCompatError(err, compat.EventDeleteRootForbidden))
}

func TestSetOwnerUnknownName(t *testing.T) {
	vfs, base := newTestFS(t)

	require.NoError(t, os.WriteFile(filepath.Join(base, "f"), nil, 0o600))

	err := vfs.SetOwner([]string{"f"}, "no-such-owner-0a1b2c")
	assert.True(t, compat.IsCompatError(err, compat.EventSetOwnerFailed))
	assert.Contains(t, err.Error(), "no-such-owner-0a1b2c")
}

func TestAddGroupUnknownName(t *testing.T) {
	vfs, base := newTestFS(t)

	require.NoError(t, os.WriteFile(filepath.Join(base, "f"), nil, 0o600))

	err := vfs.AddGroup([]string{"f"}, "no-such-group-0a1b2c")
	assert.True(t, compat.IsCompatError(err, compat.EventAddGroupFailed))
	assert.Contains(t, err.Error(), "no-such-group-0a1b2c")
}

func TestRemoveGroupUnknownName(t *testing.T) {
	vfs, base := newTestFS(t)

	require.NoError(t, os.WriteFile(filepath.Join(base, "f"), nil, 0o600))

	err := vfs.RemoveGroup([]string{"f"}, "no-such-group-0a1b2c")
	assert.True(t, compat.IsCompatError(err, compat.EventUnknownGroupRemoval))
}

func TestSetGroupIsDisabled(t *testing.T) {
	vfs, _ := newTestFS(t)

	err := vfs.SetGroup([]string{"f"}, "users")

	var invalid compat.InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestWriteAndReadFile(t *testing.T) {
	vfs, _ := newTestFS(t)

	data := []byte("some content")
	require.NoError(t, vfs.WriteFile([]string{"f.txt"}, data))

	got, err := vfs.ReadFile([]string{"f.txt"})
	require.NoError(t, err)
	assert.Equal(t, data, got)

	attrs, err := vfs.GetAttributes([]string{"f.txt"})
	require.NoError(t, err)
	assert.True(t, attrs.IsFile)
	assert.Equal(t, int64(len(data)), attrs.Size)
	assert.Equal(t, "f.txt", attrs.Name)
}

func TestOpenFileForAppending(t *testing.T) {
	vfs, _ := newTestFS(t)

	require.NoError(t, vfs.WriteFile([]string{"log"}, []byte("one ")))

	f, err := vfs.OpenFileForAppending([]string{"log"})
	require.NoError(t, err)

	_, err = f.WriteString("two")
	require.NoError(t, err)

	// Append handles are write only.
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = f.Read(make([]byte, 1))
	assert.Error(t, err)

	require.NoError(t, f.Close())

	got, err := vfs.ReadFile([]string{"log"})
	require.NoError(t, err)
	assert.Equal(t, "one two", string(got))
}

func TestCopyFile(t *testing.T) {
	vfs, base := newTestFS(t)

	require.NoError(t, vfs.WriteFile([]string{"src"}, []byte("payload")))
	require.NoError(t, vfs.CreateFolder([]string{"dest"}))

	// A folder destination receives the source's base name.
	require.NoError(t, vfs.CopyFile([]string{"src"}, []string{"dest"}, false))

	got, err := os.ReadFile(filepath.Join(base, "dest", "src"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	// An existing destination fails without overwrite.
	err = vfs.CopyFile([]string{"src"}, []string{"dest", "src"}, false)
	assert.True(t, errors.Is(err, fs.ErrExist))

	require.NoError(t, vfs.WriteFile([]string{"src"}, []byte("updated")))
	require.NoError(t, vfs.CopyFile([]string{"src"}, []string{"dest", "src"}, true))

	got, err = os.ReadFile(filepath.Join(base, "dest", "src"))
	require.NoError(t, err)
	assert.Equal(t, "updated", string(got))
}

func TestRenameAndDelete(t *testing.T) {
	vfs, _ := newTestFS(t)

	require.NoError(t, vfs.WriteFile([]string{"a"}, []byte("x")))
	require.NoError(t, vfs.Rename([]string{"a"}, []string{"b"}))

	assert.False(t, vfs.Exists([]string{"a"}))
	assert.True(t, vfs.Exists([]string{"b"}))

	require.NoError(t, vfs.DeleteFile([]string{"b"}))
	assert.False(t, vfs.Exists([]string{"b"}))

	require.NoError(t, vfs.CreateFolder([]string{"d"}))
	require.NoError(t, vfs.WriteFile([]string{"d", "f"}, []byte("x")))
	require.NoError(t, vfs.DeleteFolder([]string{"d"}, true))
	assert.False(t, vfs.Exists([]string{"d"}))
}

func TestCreateTemp(t *testing.T) {
	vfs, base := newTestFS(t)

	f, err := vfs.CreateTemp(nil, "upload-")
	require.NoError(t, err)

	defer f.Close()

	name := filepath.Base(f.Name())
	assert.True(t, strings.HasPrefix(name, "upload-"))
	assert.Equal(t, filepath.Clean(base), filepath.Dir(f.Name()))

	_, err = f.WriteString("tmp")
	require.NoError(t, err)
}

func TestTouchFile(t *testing.T) {
	vfs, _ := newTestFS(t)

	require.NoError(t, vfs.TouchFile([]string{"new"}))
	assert.True(t, vfs.IsFile([]string{"new"}))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, vfs.Chtimes([]string{"new"}, past, past))

	require.NoError(t, vfs.TouchFile([]string{"new"}))

	attrs, err := vfs.GetAttributes([]string{"new"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), attrs.ModTime, time.Minute)
}

func TestFolderContentMergesVirtualFirst(t *testing.T) {
	target := t.TempDir()

	vfs, base := newTestFS(t, compat.WithVirtualFolders(compat.VirtualFolder{
		Segments: []string{"v"},
		RealPath: target,
	}))

	require.NoError(t, vfs.WriteFile([]string{"plain"}, []byte("x")))

	// A real entry created after construction under the same name is
	// shadowed by the virtual child.
	require.NoError(t, os.Mkdir(filepath.Join(base, "v"), 0o700))

	content, err := vfs.GetFolderContent(nil)
	require.NoError(t, err)

	var vCount int

	names := make([]string, len(content))
	for i, a := range content {
		names[i] = a.Name
		if a.Name == "v" {
			vCount++
		}
	}

	assert.Equal(t, "v", names[0])
	assert.Equal(t, 1, vCount)
	assert.Contains(t, names, "plain")
}

func TestReadLinkRoundTrip(t *testing.T) {
	if !compat.Capabilities().SupportsSymbolicLinks {
		t.Skip("symbolic links not supported")
	}

	vfs, _ := newTestFS(t)

	require.NoError(t, vfs.WriteFile([]string{"target"}, []byte("x")))
	require.NoError(t, vfs.MakeLink([]string{"target"}, []string{"link"}))

	assert.True(t, vfs.IsLink([]string{"link"}))

	segments, err := vfs.ReadLink([]string{"link"})
	require.NoError(t, err)
	assert.Equal(t, []string{"target"}, segments)
}
