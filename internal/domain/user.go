package domain

// User is a stored user record. ID is assigned by the store and never changes.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// UserCreate is the payload accepted when creating a user.
type UserCreate struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// NewUser builds a record from a creation payload and an assigned id.
func NewUser(id int64, in UserCreate) User {
	return User{
		ID:        id,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Avatar:    in.Avatar,
	}
}

// UserPatch carries a partial update. Only fields that were present in the
// request are applied.
type UserPatch struct {
	Email     Optional[string] `json:"email"`
	FirstName Optional[string] `json:"first_name"`
	LastName  Optional[string] `json:"last_name"`
	Avatar    Optional[string] `json:"avatar"`
}

// IsEmpty reports whether the patch changes nothing. Null members count as
// absent, matching Apply.
func (p UserPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply returns u with every present, non-null field of p merged in.
func (p UserPatch) Apply(u User) User {
	if v, ok := p.Email.Get(); ok {
		u.Email = v
	}
	if v, ok := p.FirstName.Get(); ok {
		u.FirstName = v
	}
	if v, ok := p.LastName.Get(); ok {
		u.LastName = v
	}
	if v, ok := p.Avatar.Get(); ok {
		u.Avatar = v
	}
	return u
}

// Fields returns the column values present in the patch keyed by JSON name.
func (p UserPatch) Fields() map[string]string {
	fields := make(map[string]string, 4)
	if v, ok := p.Email.Get(); ok {
		fields["email"] = v
	}
	if v, ok := p.FirstName.Get(); ok {
		fields["first_name"] = v
	}
	if v, ok := p.LastName.Get(); ok {
		fields["last_name"] = v
	}
	if v, ok := p.Avatar.Get(); ok {
		fields["avatar"] = v
	}
	return fields
}
