package manaba_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

func TestFamily_ResolvesInitialURLs(t *testing.T) {
	t.Parallel()

	f := manaba.Family()

	for _, url := range manaba.InitialURLs() {
		url := url
		t.Run(url, func(t *testing.T) {
			t.Parallel()

			got, err := f.Resolve(url)
			require.NoError(t, err)
			require.Equal(t, manaba.GroupCourseList, got.GroupName)
		})
	}
}

func TestFamily_CourseHierarchy(t *testing.T) {
	t.Parallel()

	f := manaba.Family()

	tests := []struct {
		url       string
		wantGroup string
	}{
		{"https://room.chuo-u.ac.jp/ct/course_3428678", manaba.GroupCourse},
		{"https://room.chuo-u.ac.jp/ct/course_3428678_news", manaba.GroupCourseNewsList},
		{"https://room.chuo-u.ac.jp/ct/course_3428678_news_1", manaba.GroupCourseNews},
		{"https://room.chuo-u.ac.jp/ct/course_3428678_page", manaba.GroupCourseContentsList},
		{"https://room.chuo-u.ac.jp/ct/page_3428678c1", manaba.GroupCourseContentsPageList},
		{"https://room.chuo-u.ac.jp/ct/page_3428678c1_2", manaba.GroupCourseContentsPage},
	}

	for _, test := range tests {
		test := test
		t.Run(test.wantGroup, func(t *testing.T) {
			t.Parallel()

			got, err := f.Resolve(test.url)
			require.NoError(t, err)
			require.Equal(t, test.wantGroup, got.GroupName)
		})
	}
}

func TestFamily_ParentLinkage(t *testing.T) {
	t.Parallel()

	f := manaba.Family()

	course := f.Find(manaba.Host, manaba.GroupCourse)
	courseList := f.Find(manaba.Host, manaba.GroupCourseList)
	require.True(t, course.Parent.Equal(courseList))

	courseNews := f.Find(manaba.Host, manaba.GroupCourseNews)
	courseNewsList := f.Find(manaba.Host, manaba.GroupCourseNewsList)
	require.True(t, courseNews.Parent.Equal(courseNewsList))
}

func TestNormalizeStartAndPageLen(t *testing.T) {
	t.Parallel()

	f := manaba.Family()

	got, err := f.Resolve("https://room.chuo-u.ac.jp/ct/course_1_news?start=5&pagelen=20")
	require.NoError(t, err)
	require.Equal(t, "https://room.chuo-u.ac.jp/ct/course_1_news?pagelen=100&start=1", got.URL)

	// When only one of the two parameters is present, neither is rewritten.
	got, err = f.Resolve("https://room.chuo-u.ac.jp/ct/course_1_news?start=5")
	require.NoError(t, err)
	require.Equal(t, "https://room.chuo-u.ac.jp/ct/course_1_news?start=5", got.URL)
}
