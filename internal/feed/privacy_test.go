package feed_test

import (
	"testing"

	"missionboard/internal/domain"
	"missionboard/internal/feed"
)

func TestEffective(t *testing.T) {
	cases := []struct {
		userDefault string
		override    string
		want        string
	}{
		{domain.PrivacyAuto, domain.PrivacyInherit, domain.PrivacyAuto},
		{domain.PrivacyNever, domain.PrivacyInherit, domain.PrivacyNever},
		{domain.PrivacyNever, domain.PrivacyAuto, domain.PrivacyAuto},
		{domain.PrivacyAuto, domain.PrivacyNever, domain.PrivacyNever},
		{domain.PrivacyAuto, "", domain.PrivacyAuto},
		{"", "", domain.PrivacyAsk},
	}
	for _, tc := range cases {
		if got := feed.Effective(tc.userDefault, tc.override); got != tc.want {
			t.Errorf("Effective(%q, %q) = %q, want %q", tc.userDefault, tc.override, got, tc.want)
		}
	}
}

func TestPredicates(t *testing.T) {
	if feed.ShouldCreatePost(domain.PrivacyNever) {
		t.Fatal("never must not create a post")
	}
	if !feed.ShouldCreatePost(domain.PrivacyAuto) || !feed.ShouldCreatePost(domain.PrivacyAsk) {
		t.Fatal("auto and ask must create a post")
	}
	if !feed.ShouldPublishImmediately(domain.PrivacyAuto) {
		t.Fatal("auto must publish immediately")
	}
	if feed.ShouldPublishImmediately(domain.PrivacyAsk) {
		t.Fatal("ask must not publish immediately")
	}
	if !feed.ShouldCreateAsDraft(domain.PrivacyAsk) {
		t.Fatal("ask must create a draft")
	}
	if feed.ShouldCreateAsDraft(domain.PrivacyAuto) || feed.ShouldCreateAsDraft(domain.PrivacyNever) {
		t.Fatal("only ask creates drafts")
	}
}
