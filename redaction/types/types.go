// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package types holds the data types threaded through a redaction pass.
package types

import "strings"

// Target is the identity tuple threaded through one database's redaction
// pass. It is created per job invocation and never persisted.
type Target struct {
	Database string
	OldName  string
	NewName  string
	// UserID is the identity's numeric ID in this database. A zero value
	// aborts the pass.
	UserID int64
	// ActorID is the identity's actor indirection reference in this
	// database. Zero means no actor-keyed rows exist here, which is not
	// an error: rules bound to the actor simply have nothing to match.
	ActorID int64
}

// PIIValue is one discovered personal value, annotated by the exporter
// with its source database.
type PIIValue struct {
	Field string
	Value string
}

// AccountPII is the account-level PII read from the local user row.
type AccountPII struct {
	Email    string
	RealName string
	Gender   string
}

// Page is one page owned by the identity, found by exact title or
// "title/" subpage prefix match.
type Page struct {
	ID        int64
	Namespace int
	Title     string
}

// Wiki page namespace numbers. User and talk pages are platform core;
// the rest belong to optional profile and blog features.
const (
	NamespaceUser            = 2
	NamespaceUserTalk        = 3
	NamespaceUserWiki        = 200
	NamespaceUserWikiTalk    = 201
	NamespaceUserProfile     = 202
	NamespaceUserProfileTalk = 203
	NamespaceBlog            = 500
	NamespaceBlogTalk        = 501
	NamespaceUserBlog        = 502
	NamespaceUserBlogTalk    = 503
)

// FeatureNamespaces maps optional farm features to the extra namespaces
// whose user pages must be suppressed when the feature is deployed.
var FeatureNamespaces = map[string][]int{
	"socialprofile": {
		NamespaceUserWiki, NamespaceUserWikiTalk,
		NamespaceUserProfile, NamespaceUserProfileTalk,
	},
	"blogpage":       {NamespaceBlog, NamespaceBlogTalk},
	"simpleblogpage": {NamespaceUserBlog, NamespaceUserBlogTalk},
}

// UserPageNamespaces resolves the namespace set to clean for a farm with
// the given feature test.
func UserPageNamespaces(enabled func(feature string) bool) []int {
	namespaces := []int{NamespaceUser, NamespaceUserTalk}
	for _, feature := range []string{"socialprofile", "blogpage", "simpleblogpage"} {
		if enabled(feature) {
			namespaces = append(namespaces, FeatureNamespaces[feature]...)
		}
	}
	return namespaces
}

// TitleKey converts a display name or title to database key form, with
// spaces stored as underscores.
func TitleKey(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
