package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// PersonFilter selects every person entry, optionally without students.
func PersonFilter(excludeStudents bool) string {
	const base = "(objectClass=person)"
	if !excludeStudents {
		return base
	}
	return "(&" + base + "(!(eduPersonAffiliation=student)))"
}

// SearchFilter matches term as a substring of uid, cn, mail, sn or
// givenName. term is escaped before use.
func SearchFilter(term string, excludeStudents, excludeAlumni bool) string {
	t := ldap.EscapeFilter(term)
	filter := fmt.Sprintf("(|(uid=*%[1]s*)(cn=*%[1]s*)(mail=*%[1]s*)(sn=*%[1]s*)(givenName=*%[1]s*))", t)

	var exclusions []string
	if excludeStudents {
		exclusions = append(exclusions, "(!(eduPersonAffiliation=student))")
	}
	if excludeAlumni {
		exclusions = append(exclusions, "(!(eduPersonAffiliation=alum))")
	}
	if len(exclusions) == 0 {
		return filter
	}
	return "(&" + filter + strings.Join(exclusions, "") + ")"
}
