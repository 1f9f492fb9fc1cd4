// Package orgauth provides the authentication, token lifecycle, and
// organization scoped authorization core for a multi tenant service.
//
// Tenancy model:
//   - Users are global identities; an email maps to exactly one User no
//     matter how many organizations it belongs to.
//   - Memberships bind a User to an Organization with a Role. The
//     membership row is the authorization unit: pending invitations,
//     deactivated memberships, and role changes all live there, and the
//     Authorizer re-reads the row on every check so revocation does not
//     wait for token expiry.
//   - Access tokens are scoped to a single organization. The org and
//     role claims inside them are hints for routing and UI, never the
//     final word.
//
// Token lifecycle:
//   - Login hands out a short lived signed access token and an opaque
//     refresh token stored server side. Refreshing rotates the pair: a
//     conditional update revokes the old row so two concurrent
//     exchanges of one token produce exactly one winner.
//   - Password resets revoke every outstanding refresh token; logout
//     does the same for the calling user.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and
//     the command handlers for login, refresh, invitation, and reset
//     events. Sinks run best-effort (errors are logged) so you can
//     forward to a database, queue, or the metrics package without
//     blocking authentication.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before JWTs are signed. Decorators may
//     enrich the metadata extension field while protected claims (sub,
//     iss, aud, exp, org, role) remain immutable.
package orgauth
