// internal/domain/models/user.go
package models

// User is a registered person. Permissions are capability strings such as
// DATA_MANAGEMENT; auth_ids hold the login identities ("<sub>::<provider>").
//
// NOTE:
//   - api_key holds a bcrypt hash, never the key itself.
//   - Users referenced by email before their first login are created with
//     just an email and no auth ids.
type User struct {
	ID          string   `bson:"_id" json:"_id"`
	Name        string   `bson:"name" json:"name"`
	Email       string   `bson:"email" json:"email"`
	Affiliation string   `bson:"affiliation" json:"affiliation"`
	Contact     string   `bson:"contact" json:"contact"`
	ORCID       string   `bson:"orcid" json:"orcid"`
	URL         string   `bson:"url" json:"url"`
	AuthIDs     []string `bson:"auth_ids" json:"auth_ids"`
	Permissions []string `bson:"permissions" json:"permissions"`
	APIKey      string   `bson:"api_key" json:"-"`
	APISalt     string   `bson:"api_salt" json:"-"`
}

// Record returns the user as an untyped document without api_key/api_salt.
func (u User) Record() Record {
	authIDs := make([]any, len(u.AuthIDs))
	for i, a := range u.AuthIDs {
		authIDs[i] = a
	}
	perms := make([]any, len(u.Permissions))
	for i, p := range u.Permissions {
		perms[i] = p
	}
	return Record{
		"_id":         u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"affiliation": u.Affiliation,
		"contact":     u.Contact,
		"orcid":       u.ORCID,
		"url":         u.URL,
		"auth_ids":    authIDs,
		"permissions": perms,
	}
}

// UserSummary is how user references are expanded in responses.
type UserSummary struct {
	ID    string `bson:"_id" json:"_id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

// Record returns the summary as an untyped document.
func (s UserSummary) Record() Record {
	return Record{"_id": s.ID, "name": s.Name, "email": s.Email}
}
