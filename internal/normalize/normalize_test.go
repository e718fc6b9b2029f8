// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package normalize

import (
	"testing"

	"github.com/loopcloser/ingestion/internal/models"
)

func TestNormalize_Reddit(t *testing.T) {
	post := Normalize(RawItem{
		ID:     "abc123",
		Title:  "App keeps crashing",
		Body:   "Every time I open it",
		Author: "someuser",
		URL:    "https://reddit.com/r/saas/abc123",
	}, models.PlatformReddit)

	if post == nil {
		t.Fatal("expected post")
	}
	if post.ID != "rd_abc123" {
		t.Errorf("id = %q, want rd_abc123", post.ID)
	}
	if post.UserHandle != "u/someuser" {
		t.Errorf("handle = %q, want u/someuser", post.UserHandle)
	}
	if post.Content != "App keeps crashing\n\nEvery time I open it" {
		t.Errorf("content = %q", post.Content)
	}
}

func TestNormalize_RedditFallsBackToSelftext(t *testing.T) {
	post := Normalize(RawItem{
		ID:       "x",
		Title:    "Title only",
		SelfText: "self text body",
	}, models.PlatformReddit)

	if post == nil {
		t.Fatal("expected post")
	}
	if post.Content != "Title only\n\nself text body" {
		t.Errorf("content = %q", post.Content)
	}
}

func TestNormalize_RedditEmptyBodyAllowed(t *testing.T) {
	post := Normalize(RawItem{ID: "x", Title: "Just a title"}, models.PlatformReddit)
	if post == nil {
		t.Fatal("title-only Reddit post should survive")
	}
	if post.Content != "Just a title" {
		t.Errorf("content = %q", post.Content)
	}
}

func TestNormalize_InstagramRequiresCaption(t *testing.T) {
	if post := Normalize(RawItem{ID: "x"}, models.PlatformInstagram); post != nil {
		t.Fatalf("caption-less Instagram item should be filtered, got %+v", post)
	}

	post := Normalize(RawItem{ID: "x", Caption: "nice shot", OwnerUsername: "grammer"}, models.PlatformInstagram)
	if post == nil {
		t.Fatal("expected post")
	}
	if post.ID != "ig_x" || post.UserHandle != "@grammer" {
		t.Errorf("got id=%q handle=%q", post.ID, post.UserHandle)
	}
}

func TestNormalize_FacebookRequiresText(t *testing.T) {
	if post := Normalize(RawItem{PostID: "9"}, models.PlatformFacebook); post != nil {
		t.Fatalf("text-less Facebook item should be filtered, got %+v", post)
	}

	post := Normalize(RawItem{PostID: "9", PostText: "hello", UserName: "Jane Doe"}, models.PlatformFacebook)
	if post == nil {
		t.Fatal("expected post")
	}
	if post.ID != "fb_9" {
		t.Errorf("id = %q, want fb_9", post.ID)
	}
	if post.UserHandle != "Jane Doe" {
		t.Errorf("handle = %q, want display name as-is", post.UserHandle)
	}
}

func TestNormalize_Twitter(t *testing.T) {
	post := Normalize(RawItem{
		ID:         "555",
		TweetText:  "broken again",
		UserHandle: "@dev",
	}, models.PlatformTwitter)

	if post == nil {
		t.Fatal("expected post")
	}
	if post.ID != "twitter_555" {
		t.Errorf("id = %q, want twitter_555", post.ID)
	}
	if post.UserHandle != "@dev" {
		t.Errorf("handle = %q", post.UserHandle)
	}
}

func TestNormalize_MissingFieldsGetPlaceholders(t *testing.T) {
	post := Normalize(RawItem{Title: "t"}, models.PlatformReddit)
	if post == nil {
		t.Fatal("expected post")
	}
	if post.ID != "rd_000" {
		t.Errorf("id = %q, want rd_000", post.ID)
	}
	if post.UserHandle != "u/unknown" {
		t.Errorf("handle = %q, want u/unknown", post.UserHandle)
	}
}

func TestNormalize_IDsStableAcrossRuns(t *testing.T) {
	item := RawItem{ID: "same", Title: "t"}
	a := Normalize(item, models.PlatformReddit)
	b := Normalize(item, models.PlatformReddit)
	if a.ID != b.ID {
		t.Errorf("ids differ: %q vs %q", a.ID, b.ID)
	}
}

func TestFields(t *testing.T) {
	got := Fields(" a, b ,, c , d ", 3)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := Fields("", 3); got != nil {
		t.Errorf("empty csv should yield nil, got %v", got)
	}
	if got := Fields("a,b,c", 0); len(got) != 3 {
		t.Errorf("max<=0 should not cap, got %v", got)
	}
}

func TestQuery(t *testing.T) {
	if got := Query("", "crash"); got != "crash" {
		t.Errorf("got %q", got)
	}
	if got := Query("Loop Closer", "crash"); got != `"Loop Closer" crash` {
		t.Errorf("got %q", got)
	}
	if got := Query("  ", "crash"); got != "crash" {
		t.Errorf("whitespace product name should be ignored, got %q", got)
	}
}
