package migrate

import "fmt"

var destructiveCommands = map[string]struct{}{
	"down":    {},
	"redo":    {},
	"reset":   {},
	"version": {},
}

// IsDestructive reports whether command can drop schema objects or rows.
func IsDestructive(command string) bool {
	_, ok := destructiveCommands[command]
	return ok
}

// GuardCommand refuses destructive commands against prod unless forced.
func GuardCommand(env, command string, force bool) error {
	if !IsDestructive(command) || force {
		return nil
	}
	if env == "prod" || env == "production" {
		return fmt.Errorf("refusing %q against %s without -force", command, env)
	}
	return nil
}
