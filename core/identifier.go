package core

import "regexp"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier accepts names made of letters, digits and underscores,
// starting with a letter or underscore. Table, field, alias and checkpoint
// names all pass through here before they reach storage or SQL text.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return Securityf("invalid identifier `%s`", name)
	}
	return nil
}
