package deps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerge_DeduplicatesAndSorts(t *testing.T) {
	t.Parallel()

	merged := Merge(NewSet("libA"), NewSet("libA", "libB"))
	require.Equal(t, []string{"libA", "libB"}, merged.Sorted())

	reversed := Merge(NewSet("libB", "libA"), NewSet("libA"))
	require.Equal(t, merged.Sorted(), reversed.Sorted())
}

func TestMerge_DropsBlankAndComments(t *testing.T) {
	t.Parallel()

	merged := Merge(NewSet("", "   ", "# generated by find-requires", "  libc.so.6  ", "#libfoo"))
	require.Equal(t, []string{"libc.so.6"}, merged.Sorted())
}

func TestFilterBundled_PrefixOnly(t *testing.T) {
	t.Parallel()

	filtered := FilterBundled(NewSet("libfoo.so.2", "notlibfoo.so", "libbar.so.1"), []string{"libfoo.so"})
	require.Equal(t, []string{"libbar.so.1", "notlibfoo.so"}, filtered.Sorted())
}

func TestFilterBundled_DefaultList(t *testing.T) {
	t.Parallel()

	bundled := []string{"libEGL.so", "libGLESv2.so", "libvulkan.so.1", "libvk_swiftshader.so", "libffmpeg.so"}
	filtered := FilterBundled(NewSet(
		"libEGL.so.1()(64bit)",
		"libffmpeg.so()(64bit)",
		"libvulkan.so.1",
		"libc.so.6()(64bit)",
	), bundled)

	require.Equal(t, []string{"libc.so.6()(64bit)"}, filtered.Sorted())
}
