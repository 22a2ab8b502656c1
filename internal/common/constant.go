package common

// DefaultRole is granted to accounts registered without an explicit role.
const DefaultRole = "ROLE_USER"

// UsernameParam is the single parameter carried by an activation-notice task.
const UsernameParam = "username"

// TaskTokenHeaderName carries the bearer token on task deliveries.
const TaskTokenHeaderName = "Authorization"
