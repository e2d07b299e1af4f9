package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxCommentLength is the longest comment body accepted, in characters.
const MaxCommentLength = 10000

// MaxReportDetailsLength bounds the free-text part of a report.
const MaxReportDetailsLength = 2000

var postSlugRegex = regexp.MustCompile(`^/[a-z0-9][a-z0-9/_-]*$`)

// NormalizeCommentContent trims content and checks it is non-empty and within bounds.
func NormalizeCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", fmt.Errorf("comment too long (max %d characters)", MaxCommentLength)
	}
	return content, nil
}

// ValidatePostSlug checks a post slug such as /blog/x.
func ValidatePostSlug(slug string) error {
	if len(slug) > 512 {
		return fmt.Errorf("post slug must not exceed 512 characters")
	}
	if !postSlugRegex.MatchString(slug) {
		return fmt.Errorf("post slug must start with / and contain only lowercase letters, numbers, '/', '_' and '-'")
	}
	if strings.Contains(slug, "//") {
		return fmt.Errorf("post slug must not contain empty segments")
	}
	return nil
}

// NormalizeReportDetails trims and bounds report details. Empty details are allowed.
func NormalizeReportDetails(details string) (string, error) {
	details = strings.TrimSpace(details)
	if utf8.RuneCountInString(details) > MaxReportDetailsLength {
		return "", fmt.Errorf("details too long (max %d characters)", MaxReportDetailsLength)
	}
	return details, nil
}
