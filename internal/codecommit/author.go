package codecommit

import "strings"

// AuthorFromARN derives a display name from an ARN-style identifier: the
// text after the last ':' and, for IAM paths such as "user/alice" or
// "assumed-role/Dev/alice", the trailing path segment. Bare names pass
// through unchanged. Unlike a plain split on ':', "arn:aws:iam::1:user/alice"
// yields "alice", not "user/alice".
func AuthorFromARN(arn string) string {
	name := arn[strings.LastIndexByte(arn, ':')+1:]
	return name[strings.LastIndexByte(name, '/')+1:]
}
