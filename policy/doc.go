// Package policy implements the moderation decision-and-action pipeline:
// rule evaluation against content events, exemption checks, idempotent
// side-effecting action execution with retry, and the per-actor
// escalation counter that drives ban decisions.
package policy
