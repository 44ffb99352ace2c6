// Package invitesdk is a Go client for the property invite service.
//
// Unauthenticated calls (Validate, health probes) work on a bare Client.
// WithToken returns a copy that sends a bearer access token, which Accept
// and the issuer and rollout operations require:
//
//	c := invitesdk.NewClient("https://invites.example.com")
//	preview, err := c.Validate(ctx, raw)
//	if invitesdk.IsReason(err, invitesdk.ReasonExpired) {
//		// ask the owner for a new invite
//	}
//	res, err := c.WithToken(accessToken).Accept(ctx, raw)
package invitesdk
