package orgauth

// authIdentity adapts a User row to the Identity interface handed to
// the token service.
type authIdentity struct {
	id    string
	email string
	name  string
}

func (a authIdentity) ID() string    { return a.id }
func (a authIdentity) Email() string { return a.email }
func (a authIdentity) Name() string  { return a.name }

// NewIdentityFromUser builds an Identity from a stored user record.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		name:  user.Name(),
	}
}
