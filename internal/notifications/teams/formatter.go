package teams

import (
	"fmt"

	"commitcard/internal/codecommit"
)

const (
	previousCommentsTitle    = "Previous Comments"
	previousCommentsSubtitle = "All previous comments on this Pull Request"
	previousCommentsImage    = "https://i.imgur.com/4f6y1pW.png"

	actionViewPullRequest = "View Pull Request"
	actionViewRepository  = "View Repository"
)

// Formatter builds a MessageCard for each codecommit.Event variant.
type Formatter struct {
	// DefaultRegion is used for console links when the event has no region.
	DefaultRegion string
	// DefaultRepository is linked from comment cards whose event omits the
	// repository name.
	DefaultRepository string
}

// NewFormatter creates a Formatter with the given link fallbacks.
func NewFormatter(defaultRegion, defaultRepository string) *Formatter {
	return &Formatter{DefaultRegion: defaultRegion, DefaultRepository: defaultRepository}
}

// Format builds the card for ev.
func (f *Formatter) Format(ev codecommit.Event) (MessageCard, error) {
	switch e := ev.(type) {
	case *codecommit.CommentOnPullRequest:
		return f.commentCard(e), nil
	case *codecommit.RepositoryStateChange:
		return f.repositoryCard(e), nil
	case *codecommit.PullRequestMergeStatusUpdated:
		return f.pullRequestCard(&e.PullRequest,
			fmt.Sprintf("%s closed Pull Request %s in %s", e.Author(), e.PullRequestID, e.RepositoryName),
			fmt.Sprintf("Title: %s\nStatus: %s", e.Title, e.Status)), nil
	case *codecommit.PullRequestCreated:
		return f.pullRequestCard(&e.PullRequest,
			fmt.Sprintf("%s created Pull Request %s in %s", e.Author(), e.PullRequestID, e.RepositoryName),
			fmt.Sprintf("Title: %s", e.Title)), nil
	case *codecommit.PullRequestApprovalStateChanged:
		return f.pullRequestCard(&e.PullRequest,
			fmt.Sprintf("%s updated their approval state for Pull Request %s in %s", e.Author(), e.PullRequestID, e.RepositoryName),
			fmt.Sprintf("Approval Status: %s", e.ApprovalStatus)), nil
	case nil:
		return MessageCard{}, fmt.Errorf("teams formatter: event is nil")
	default:
		return MessageCard{}, fmt.Errorf("teams formatter: unsupported event %T", ev)
	}
}

// commentCard lists the new comment as the card text and the rest of the
// thread as facts, newest first. "Comment N" counts down from the number of
// earlier comments, so the oldest is always "Comment 1".
func (f *Formatter) commentCard(e *codecommit.CommentOnPullRequest) MessageCard {
	latest := e.Latest()
	title := fmt.Sprintf("%s commented on Pull Request %s", latest.Author(), e.PullRequestID)

	prior := e.Prior()
	facts := make([]Fact, 0, len(prior)+2)
	if path, line, ok := e.Location(); ok {
		facts = append(facts,
			Fact{Name: "File Path", Value: path},
			Fact{Name: "Line Number", Value: line},
		)
	}
	for i := len(prior) - 1; i >= 0; i-- {
		facts = append(facts, Fact{
			Name:  fmt.Sprintf("Comment %d", i+1),
			Value: fmt.Sprintf("%s - %s", prior[i].CommentText, prior[i].Author()),
		})
	}

	repo := e.RepositoryName
	if repo == "" {
		repo = f.DefaultRepository
	}

	card := newCard(title, latest.CommentText)
	card.Summary = title
	card.Sections = []Section{{
		ActivityTitle:    previousCommentsTitle,
		ActivitySubtitle: previousCommentsSubtitle,
		ActivityImage:    previousCommentsImage,
		Facts:            facts,
		Markdown:         true,
	}}
	card.PotentialAction = openURI(actionViewPullRequest,
		codecommit.PullRequestActivityURL(f.region(e.Region), repo, e.PullRequestID))
	return card
}

func (f *Formatter) repositoryCard(e *codecommit.RepositoryStateChange) MessageCard {
	card := newCard(
		fmt.Sprintf("%s merged a change to %s in %s", e.Author(), e.ReferenceName, e.RepositoryName),
		fmt.Sprintf("Commit ID: %s", e.CommitID),
	)
	card.PotentialAction = openURI(actionViewRepository,
		codecommit.RepositoryBrowseURL(f.region(e.Region), e.RepositoryName, e.ReferenceName))
	return card
}

func (f *Formatter) pullRequestCard(pr *codecommit.PullRequest, title, text string) MessageCard {
	card := newCard(title, text)
	card.PotentialAction = openURI(actionViewPullRequest,
		codecommit.PullRequestURL(f.region(pr.Region), pr.RepositoryName, pr.PullRequestID))
	return card
}

func (f *Formatter) region(eventRegion string) string {
	if eventRegion != "" {
		return eventRegion
	}
	return f.DefaultRegion
}
