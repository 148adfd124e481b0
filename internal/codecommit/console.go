package codecommit

import (
	"fmt"
	"net/url"
	"strings"
)

const consoleRepositoriesURL = "https://%s.console.aws.amazon.com/codesuite/codecommit/repositories"

func repositoriesBase(region string) string {
	return fmt.Sprintf(consoleRepositoriesURL, region)
}

// PullRequestActivityURL links to the activity tab of a pull request.
func PullRequestActivityURL(region, repository, pullRequestID string) string {
	return fmt.Sprintf("%s/%s/pull-requests/%s/activity",
		repositoriesBase(region), url.PathEscape(repository), url.PathEscape(pullRequestID))
}

// PullRequestURL links to the overview of a pull request.
func PullRequestURL(region, repository, pullRequestID string) string {
	return fmt.Sprintf("%s/%s/pull-requests/%s?region=%s",
		repositoriesBase(region), url.PathEscape(repository), url.PathEscape(pullRequestID), url.QueryEscape(region))
}

// RepositoryBrowseURL links to the tree of a reference. The reference keeps
// its slashes ("refs/heads/main") since the console routes on them; each
// segment is escaped because ref names may contain '#' or '?'.
func RepositoryBrowseURL(region, repository, reference string) string {
	segments := strings.Split(reference, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/browse/%s?region=%s",
		repositoriesBase(region), url.PathEscape(repository), strings.Join(segments, "/"), url.QueryEscape(region))
}
