// Package enforcement maps exceeded-limit evaluations onto account actions.
//
// The Dispatcher is the single place where an action kind (notify, disable,
// throttle, delete) turns into a call against the account-control backend.
// Notify is handled entirely by the notification layer, so the dispatcher
// treats it as a no-op; the other actions go through the configured
// accountcontrol.Controller.
//
// Enforcement is deliberately idempotent per user: a user whose account was
// already disabled or deleted in this process is not acted on again, so a
// sweep that finds the same violation twice produces one backend call.
package enforcement
