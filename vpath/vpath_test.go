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

package vpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chevah/compat"
)

func newTestResolver(t *testing.T, opts ...compat.AvatarOption) *Resolver {
	t.Helper()

	avatar, err := compat.NewAvatar("test-user", opts...)
	require.NoError(t, err)

	resolver, err := New(avatar)
	require.NoError(t, err)

	return resolver
}

func TestSegmentsNormalization(t *testing.T) {
	base := t.TempDir()
	home := filepath.Join(base, "home")
	require.NoError(t, os.Mkdir(home, 0o700))

	r := newTestResolver(t,
		compat.WithRootFolder(base),
		compat.WithHomeFolder(home),
	)

	assert.Equal(t, []string{"home"}, r.HomeSegments())

	// Empty and "." resolve to the home folder.
	assert.Equal(t, []string{"home"}, r.Segments(""))
	assert.Equal(t, []string{"home"}, r.Segments("."))

	// Relative paths resolve against the home folder.
	assert.Equal(t,
		[]string{"home", "docs", "a.txt"}, r.Segments("docs/a.txt"))
	assert.Equal(t, []string{"docs"}, r.Segments("../docs"))

	// Repeated separators and dot components collapse.
	assert.Equal(t, []string{"a", "b"}, r.Segments("/a//b/./c/.."))

	// Parent references clamp at the logical root.
	assert.Empty(t, r.Segments("/../.."))
	assert.Equal(t, []string{"etc"}, r.Segments("/../../etc"))
}

func TestRealPathJoinsBase(t *testing.T) {
	base := t.TempDir()

	r := newTestResolver(t, compat.WithRootFolder(base))

	real, err := r.RealPath([]string{"a", "b"}, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "a", "b"), real)

	real, err = r.RealPath(nil, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(base), real)
}

func TestRealPathRoundTrip(t *testing.T) {
	base := t.TempDir()

	r := newTestResolver(t, compat.WithRootFolder(base))

	for _, path := range []string{
		"/a/b c/d",
		"/deep/nested/folder/file.txt",
		"/single",
	} {
		segments := r.Segments(path)

		real, err := r.RealPath(segments, true)
		require.NoError(t, err)

		back, err := r.SegmentsFromRealPath(real)
		require.NoError(t, err)

		assert.Equal(t, segments, back, "round trip for %q", path)
	}
}

func TestVirtualFolderResolution(t *testing.T) {
	base := t.TempDir()
	target := t.TempDir()

	r := newTestResolver(t,
		compat.WithRootFolder(base),
		compat.WithVirtualFolders(compat.VirtualFolder{
			Segments: []string{"srv", "reports"},
			RealPath: target,
		}),
	)

	// The mount point resolves to the mapping target.
	real, err := r.RealPath([]string{"srv", "reports"}, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(target), real)

	// Paths below the mount point substitute the real prefix.
	real, err = r.RealPath([]string{"srv", "reports", "q1.txt"}, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "q1.txt"), real)

	// Content below the mount point can be mutated.
	_, err = r.RealPath([]string{"srv", "reports", "new"}, false)
	require.NoError(t, err)

	// The mount point itself and its ancestors are read only.
	_, err = r.RealPath([]string{"srv", "reports"}, false)
	assert.True(t, compat.IsCompatError(err, compat.EventVirtualPathReadOnly))

	_, err = r.RealPath([]string{"srv"}, false)
	assert.True(t, compat.IsCompatError(err, compat.EventVirtualPathReadOnly))
}

func TestVirtualMatch(t *testing.T) {
	base := t.TempDir()
	target := t.TempDir()

	r := newTestResolver(t,
		compat.WithRootFolder(base),
		compat.WithVirtualFolders(compat.VirtualFolder{
			Segments: []string{"srv", "reports"},
			RealPath: target,
		}),
	)

	match := r.Match([]string{"srv", "reports"})
	assert.True(t, match.Exact)

	match = r.Match([]string{"srv", "reports", "deep"})
	assert.True(t, match.Inside)
	assert.Equal(t, []string{"deep"}, match.Remainder)

	match = r.Match([]string{"srv"})
	assert.True(t, match.Ancestor)

	match = r.Match([]string{"other"})
	assert.False(t, match.IsVirtual())
}

func TestVirtualChildren(t *testing.T) {
	base := t.TempDir()
	target := t.TempDir()

	r := newTestResolver(t,
		compat.WithRootFolder(base),
		compat.WithVirtualFolders(
			compat.VirtualFolder{
				Segments: []string{"srv", "reports"},
				RealPath: target,
			},
			compat.VirtualFolder{
				Segments: []string{"srv", "archive"},
				RealPath: target,
			},
		),
	)

	assert.Equal(t, []string{"srv"}, r.VirtualChildren(nil))
	assert.Equal(t,
		[]string{"reports", "archive"}, r.VirtualChildren([]string{"srv"}))
	assert.Empty(t, r.VirtualChildren([]string{"srv", "reports"}))
}

func TestVirtualFolderOverlapRejected(t *testing.T) {
	base := t.TempDir()
	target := t.TempDir()

	require.NoError(t, os.Mkdir(filepath.Join(base, "srv"), 0o700))

	avatar, err := compat.NewAvatar("test-user",
		compat.WithRootFolder(base),
		compat.WithVirtualFolders(compat.VirtualFolder{
			Segments: []string{"srv", "reports"},
			RealPath: target,
		}),
	)
	require.NoError(t, err)

	_, err = New(avatar)
	assert.True(t,
		compat.IsCompatError(err, compat.EventOverlappingVirtualPath))
}

func TestLockedHomeFolderConfinement(t *testing.T) {
	base := t.TempDir()
	home := filepath.Join(base, "home")
	require.NoError(t, os.Mkdir(home, 0o700))

	r := newTestResolver(t,
		compat.WithHomeFolder(home),
		compat.WithLockedHomeFolder(),
	)

	assert.Equal(t, filepath.Clean(home), r.BasePath())

	// The logical root is the locked home folder.
	real, err := r.RealPath(r.Segments("/anything"), true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "anything"), real)

	// Raw parent segments can't escape the locked folder.
	_, err = r.RealPath([]string{"..", ".."}, true)
	assert.True(t, compat.IsCompatError(err, compat.EventUserCheckFailed))
}

func TestSegmentsFromRealPath(t *testing.T) {
	base := t.TempDir()
	target := t.TempDir()

	r := newTestResolver(t,
		compat.WithRootFolder(base),
		compat.WithVirtualFolders(compat.VirtualFolder{
			Segments: []string{"srv", "reports"},
			RealPath: target,
		}),
	)

	segments, err := r.SegmentsFromRealPath(filepath.Join(target, "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"srv", "reports", "a"}, segments)

	segments, err = r.SegmentsFromRealPath(filepath.Join(base, "x", "y"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, segments)

	_, err = r.SegmentsFromRealPath(string(os.PathSeparator) + "nowhere-else")
	assert.True(t, compat.IsCompatError(err, compat.EventUserCheckFailed))
}
