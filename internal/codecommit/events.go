package codecommit

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"commitcard/internal/types"
)

// Detail types emitted by CodeCommit notification rules.
const (
	DetailTypeCommentOnPullRequest   = "CodeCommit Comment on Pull Request"
	DetailTypeRepositoryStateChange  = "CodeCommit Repository State Change"
	DetailTypePullRequestStateChange = "CodeCommit Pull Request State Change"
)

// Pull request sub-events carried in detail.event.
const (
	PullRequestEventMergeStatusUpdated  = "pullRequestMergeStatusUpdated"
	PullRequestEventCreated             = "pullRequestCreated"
	PullRequestEventApprovalStateChange = "pullRequestApprovalStateChanged"
)

// Category identifies an Event variant.
type Category string

const (
	CategoryCommentOnPullRequest            Category = "comment_on_pull_request"
	CategoryRepositoryStateChange           Category = "repository_state_change"
	CategoryPullRequestMergeStatusUpdated   Category = "pull_request_merge_status_updated"
	CategoryPullRequestCreated              Category = "pull_request_created"
	CategoryPullRequestApprovalStateChanged Category = "pull_request_approval_state_changed"
)

// Event is a classified CodeCommit notification. The concrete type is one of
// *CommentOnPullRequest, *RepositoryStateChange,
// *PullRequestMergeStatusUpdated, *PullRequestCreated or
// *PullRequestApprovalStateChanged.
type Event interface {
	Category() Category
	isEvent()
}

// Comment is one entry of additionalAttributes.comments. Only the latest
// comment must be complete; earlier ones may lack either field (for example
// after the author was deleted) and are rendered with what is present.
type Comment struct {
	AuthorArn   string `json:"authorArn" validate:"required"`
	CommentText string `json:"commentText" validate:"required"`
}

// Author returns the display name of the comment author.
func (c Comment) Author() string { return AuthorFromARN(c.AuthorArn) }

// CommentOnPullRequest is a new comment on a pull request. Comments is the
// thread in chronological order and always holds at least one entry.
type CommentOnPullRequest struct {
	Region         string
	RepositoryName string
	PullRequestID  string
	Comments       []Comment
	FilePath       string
	LineNumber     string
}

// Latest returns the comment that triggered the notification.
func (e *CommentOnPullRequest) Latest() Comment { return e.Comments[len(e.Comments)-1] }

// Prior returns every comment before the latest one, oldest first.
func (e *CommentOnPullRequest) Prior() []Comment { return e.Comments[:len(e.Comments)-1] }

// Location reports the commented file and line. ok is false unless both are
// present.
func (e *CommentOnPullRequest) Location() (filePath, lineNumber string, ok bool) {
	if e.FilePath == "" || e.LineNumber == "" {
		return "", "", false
	}
	return e.FilePath, e.LineNumber, true
}

// RepositoryStateChange is a push or merge to a repository reference.
type RepositoryStateChange struct {
	Region         string
	RepositoryName string
	ReferenceName  string
	CommitID       string
	CallerUserArn  string
}

// Author returns the display name of the caller.
func (e *RepositoryStateChange) Author() string { return AuthorFromARN(e.CallerUserArn) }

// PullRequest holds the fields shared by every pull request state change.
// RepositoryName is the first entry of detail.repositoryNames.
type PullRequest struct {
	Region         string
	RepositoryName string
	PullRequestID  string
	Title          string
	AuthorArn      string
}

// Author returns the display name of the pull request author.
func (p *PullRequest) Author() string { return AuthorFromARN(p.AuthorArn) }

// PullRequestMergeStatusUpdated reports a pull request being merged or closed.
type PullRequestMergeStatusUpdated struct {
	PullRequest
	Status string
}

// PullRequestCreated reports a new pull request.
type PullRequestCreated struct {
	PullRequest
}

// PullRequestApprovalStateChanged reports an approval vote change.
type PullRequestApprovalStateChanged struct {
	PullRequest
	ApprovalStatus string
}

func (*CommentOnPullRequest) Category() Category  { return CategoryCommentOnPullRequest }
func (*RepositoryStateChange) Category() Category { return CategoryRepositoryStateChange }
func (*PullRequestMergeStatusUpdated) Category() Category {
	return CategoryPullRequestMergeStatusUpdated
}
func (*PullRequestCreated) Category() Category { return CategoryPullRequestCreated }
func (*PullRequestApprovalStateChanged) Category() Category {
	return CategoryPullRequestApprovalStateChanged
}

func (*CommentOnPullRequest) isEvent()            {}
func (*RepositoryStateChange) isEvent()           {}
func (*PullRequestMergeStatusUpdated) isEvent()   {}
func (*PullRequestCreated) isEvent()              {}
func (*PullRequestApprovalStateChanged) isEvent() {}

// MissingFieldError lists the required fields absent from a notification.
// Field names are JSON paths such as "detail.pullRequestStatus".
type MissingFieldError struct {
	DetailType string
	Fields     []string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.DetailType, strings.Join(e.Fields, ", "))
}

// Wire shapes of detail and additionalAttributes. Validation tags mark the
// fields each card needs.
type (
	commentDetail struct {
		PullRequestID  flexString `json:"pullRequestId" validate:"required"`
		RepositoryName string     `json:"repositoryName"`
	}

	commentAttributes struct {
		Comments            []Comment  `json:"comments" validate:"required,min=1"`
		FilePath            string     `json:"filePath"`
		CommentedLineNumber flexString `json:"commentedLineNumber"`
	}

	repositoryDetail struct {
		RepositoryName string `json:"repositoryName" validate:"required"`
		ReferenceName  string `json:"referenceName" validate:"required"`
		CommitID       string `json:"commitId" validate:"required"`
		CallerUserArn  string `json:"callerUserArn" validate:"required"`
	}

	pullRequestDetail struct {
		Event             string     `json:"event"`
		RepositoryNames   []string   `json:"repositoryNames" validate:"required,min=1,dive,required"`
		PullRequestID     flexString `json:"pullRequestId" validate:"required"`
		Title             string     `json:"title" validate:"required"`
		Author            string     `json:"author" validate:"required"`
		PullRequestStatus string     `json:"pullRequestStatus" validate:"required_if=Event pullRequestMergeStatusUpdated"`
		ApprovalStatus    string     `json:"approvalStatus" validate:"required_if=Event pullRequestApprovalStateChanged"`
	}
)

// fieldValidator reports JSON field names instead of Go field names.
var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Classify turns a decoded notification into a typed Event.
//
// Unknown detail types and pull request sub-events other than the three
// handled ones return (nil, nil): the notification is skipped, not failed.
// A recognized event lacking a required field returns a validation AppError
// wrapping *MissingFieldError.
func Classify(msg *Message) (Event, error) {
	if msg == nil {
		return nil, malformed("notification is nil", nil)
	}

	switch msg.DetailType {
	case DetailTypeCommentOnPullRequest:
		return classifyComment(msg)
	case DetailTypeRepositoryStateChange:
		return classifyRepository(msg)
	case DetailTypePullRequestStateChange:
		return classifyPullRequest(msg)
	default:
		return nil, nil
	}
}

func classifyComment(msg *Message) (Event, error) {
	var detail commentDetail
	var attrs commentAttributes
	if err := decodeSection(msg, "detail", msg.Detail, &detail); err != nil {
		return nil, err
	}
	if err := decodeSection(msg, "additionalAttributes", msg.AdditionalAttributes, &attrs); err != nil {
		return nil, err
	}

	missing := append(missingFields("detail", detail), missingFields("additionalAttributes", attrs)...)
	if n := len(attrs.Comments); n > 0 {
		latest := fmt.Sprintf("additionalAttributes.comments[%d]", n-1)
		missing = append(missing, missingFields(latest, attrs.Comments[n-1])...)
	}
	if len(missing) > 0 {
		return nil, missingFieldError(msg.DetailType, missing)
	}

	return &CommentOnPullRequest{
		Region:         msg.Region,
		RepositoryName: detail.RepositoryName,
		PullRequestID:  string(detail.PullRequestID),
		Comments:       attrs.Comments,
		FilePath:       attrs.FilePath,
		LineNumber:     string(attrs.CommentedLineNumber),
	}, nil
}

func classifyRepository(msg *Message) (Event, error) {
	var detail repositoryDetail
	if err := decodeSection(msg, "detail", msg.Detail, &detail); err != nil {
		return nil, err
	}
	if missing := missingFields("detail", detail); len(missing) > 0 {
		return nil, missingFieldError(msg.DetailType, missing)
	}

	return &RepositoryStateChange{
		Region:         msg.Region,
		RepositoryName: detail.RepositoryName,
		ReferenceName:  detail.ReferenceName,
		CommitID:       detail.CommitID,
		CallerUserArn:  detail.CallerUserArn,
	}, nil
}

func classifyPullRequest(msg *Message) (Event, error) {
	// The sub-event decides whether the rest of detail matters at all.
	var head struct {
		Event string `json:"event"`
	}
	if err := decodeSection(msg, "detail", msg.Detail, &head); err != nil {
		return nil, err
	}
	switch head.Event {
	case PullRequestEventMergeStatusUpdated, PullRequestEventCreated, PullRequestEventApprovalStateChange:
	default:
		return nil, nil
	}

	var detail pullRequestDetail
	if err := decodeSection(msg, "detail", msg.Detail, &detail); err != nil {
		return nil, err
	}

	if missing := missingFields("detail", detail); len(missing) > 0 {
		return nil, missingFieldError(msg.DetailType, missing)
	}

	pr := PullRequest{
		Region:         msg.Region,
		RepositoryName: detail.RepositoryNames[0],
		PullRequestID:  string(detail.PullRequestID),
		Title:          detail.Title,
		AuthorArn:      detail.Author,
	}

	switch detail.Event {
	case PullRequestEventMergeStatusUpdated:
		return &PullRequestMergeStatusUpdated{PullRequest: pr, Status: detail.PullRequestStatus}, nil
	case PullRequestEventCreated:
		return &PullRequestCreated{PullRequest: pr}, nil
	default:
		return &PullRequestApprovalStateChanged{PullRequest: pr, ApprovalStatus: detail.ApprovalStatus}, nil
	}
}

// decodeSection unmarshals a raw section. An absent section decodes to the
// zero value so validation reports the individual missing fields.
func decodeSection(msg *Message, name string, raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return malformed(fmt.Sprintf("%s of %q is malformed", name, msg.DetailType), err)
	}
	return nil
}

// missingFields validates s and returns the failing fields as JSON paths
// rooted at prefix.
func missingFields(prefix string, s any) []string {
	err := fieldValidator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{prefix}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "<structName>.<json path>"; drop the struct name.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		fields = append(fields, prefix+"."+path)
	}
	return fields
}

func missingFieldError(detailType string, fields []string) *types.AppError {
	mfe := &MissingFieldError{DetailType: detailType, Fields: fields}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"missing required fields: "+strings.Join(fields, ", "),
		mfe,
		map[string]any{"detail_type": detailType, "fields": fields},
	)
}
