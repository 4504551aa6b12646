package feed

import "missionboard/internal/domain"

// Effective combines a user's default feed visibility with a per-submission
// override. A non-inherit override always wins.
func Effective(userDefault, override string) string {
	if override != "" && override != domain.PrivacyInherit {
		return override
	}
	if userDefault == "" {
		return domain.PrivacyAsk
	}
	return userDefault
}

// ShouldCreatePost reports whether any feed post (published or draft) should
// exist for the resolved privacy. Downstream code branches only on these
// three predicates, never on the raw enum.
func ShouldCreatePost(p string) bool {
	return p != domain.PrivacyNever
}

// ShouldPublishImmediately reports whether the post goes live without the
// author's confirmation.
func ShouldPublishImmediately(p string) bool {
	return p == domain.PrivacyAuto
}

// ShouldCreateAsDraft reports whether the post is created unpublished,
// waiting for the author.
func ShouldCreateAsDraft(p string) bool {
	return p == domain.PrivacyAsk
}
