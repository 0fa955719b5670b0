// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package actions runs poll operations on behalf of the caller.

Every mutating action follows the same steps and stops at the first failure:

	authenticate -> validate -> load poll -> check owner -> mutate -> invalidate cache

Failures are *Error values with a Kind (VALIDATION, AUTH_REQUIRED,
PERMISSION_DENIED, NOT_FOUND, DATABASE_ERROR, UNKNOWN). Failure turns any
error into the response envelope; storage and unexpected errors only carry a
generic message, the detail is logged.

A missing poll is always reported before an ownership failure.
*/
package actions
