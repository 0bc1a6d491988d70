// Package models contains the persisted entities of the server. Attribute
// names match the stored DynamoDB items.
package models

// AuthProvider identifies how a user authenticates.
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// User is the identity record. Timestamps are strings in common.TimeLayout.
type User struct {
	ID             string       `dynamodbav:"id" json:"id"`
	Email          string       `dynamodbav:"email" json:"email"`
	Name           string       `dynamodbav:"name" json:"name"`
	FirstName      string       `dynamodbav:"first_name,omitempty" json:"first_name,omitempty"`
	LastName       string       `dynamodbav:"last_name,omitempty" json:"last_name,omitempty"`
	HashedPassword string       `dynamodbav:"hashed_password" json:"-"`
	IsVerified     bool         `dynamodbav:"is_verified" json:"is_verified"`
	IsActive       bool         `dynamodbav:"is_active" json:"is_active"`
	AuthProvider   AuthProvider `dynamodbav:"auth_provider" json:"auth_provider"`
	Role           Role         `dynamodbav:"role" json:"role"`

	AccessToken           string `dynamodbav:"access_token" json:"-"`
	RefreshToken          string `dynamodbav:"refresh_token" json:"-"`
	AccessTokenExpiresAt  string `dynamodbav:"access_token_expires_at" json:"-"`
	RefreshTokenExpiresAt string `dynamodbav:"refresh_token_expires_at" json:"-"`

	CreatedAt string `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at" json:"updated_at"`
}

// HasSession reports whether a token pair is currently mirrored on the user.
func (u *User) HasSession() bool {
	return u.AccessToken != "" || u.RefreshToken != ""
}

// UserUpdate is a partial update. Nil fields are left unchanged.
type UserUpdate struct {
	Email          *string
	Name           *string
	FirstName      *string
	LastName       *string
	HashedPassword *string
	IsVerified     *bool
	IsActive       *bool
	AuthProvider   *AuthProvider
	Role           *Role

	AccessToken           *string
	RefreshToken          *string
	AccessTokenExpiresAt  *string
	RefreshTokenExpiresAt *string

	UpdatedAt *string
}

// IsEmpty reports whether the update carries no field.
func (u UserUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Fields returns the set fields keyed by attribute name.
func (u UserUpdate) Fields() map[string]any {
	f := map[string]any{}
	if u.Email != nil {
		f["email"] = *u.Email
	}
	if u.Name != nil {
		f["name"] = *u.Name
	}
	if u.FirstName != nil {
		f["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		f["last_name"] = *u.LastName
	}
	if u.HashedPassword != nil {
		f["hashed_password"] = *u.HashedPassword
	}
	if u.IsVerified != nil {
		f["is_verified"] = *u.IsVerified
	}
	if u.IsActive != nil {
		f["is_active"] = *u.IsActive
	}
	if u.AuthProvider != nil {
		f["auth_provider"] = string(*u.AuthProvider)
	}
	if u.Role != nil {
		f["role"] = string(*u.Role)
	}
	if u.AccessToken != nil {
		f["access_token"] = *u.AccessToken
	}
	if u.RefreshToken != nil {
		f["refresh_token"] = *u.RefreshToken
	}
	if u.AccessTokenExpiresAt != nil {
		f["access_token_expires_at"] = *u.AccessTokenExpiresAt
	}
	if u.RefreshTokenExpiresAt != nil {
		f["refresh_token_expires_at"] = *u.RefreshTokenExpiresAt
	}
	if u.UpdatedAt != nil {
		f["updated_at"] = *u.UpdatedAt
	}
	return f
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.HashedPassword != nil {
		user.HashedPassword = *u.HashedPassword
	}
	if u.IsVerified != nil {
		user.IsVerified = *u.IsVerified
	}
	if u.IsActive != nil {
		user.IsActive = *u.IsActive
	}
	if u.AuthProvider != nil {
		user.AuthProvider = *u.AuthProvider
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.AccessToken != nil {
		user.AccessToken = *u.AccessToken
	}
	if u.RefreshToken != nil {
		user.RefreshToken = *u.RefreshToken
	}
	if u.AccessTokenExpiresAt != nil {
		user.AccessTokenExpiresAt = *u.AccessTokenExpiresAt
	}
	if u.RefreshTokenExpiresAt != nil {
		user.RefreshTokenExpiresAt = *u.RefreshTokenExpiresAt
	}
	if u.UpdatedAt != nil {
		user.UpdatedAt = *u.UpdatedAt
	}
}
