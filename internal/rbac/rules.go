package rbac

// Default policy for the training portal.
var RolePermissions = map[string][]string{
	"learner": {
		"content:view",
		"quiz:take",
		"attempt:view-own",
		"user:change_password",
	},
	"instructor": {
		"content:view",
		"content:upload",
		"quiz:take",
		"quiz:author",
		"attempt:view-all",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
