package directory

import (
	"github.com/go-ldap/ldap/v3"

	"github.com/mrlokans/phonedir/internal/entities"
)

// Attributes requested for person entries.
var personAttributes = []string{
	"uid", "cn", "sn", "givenName", "mail", "telephoneNumber", "ou", "eduPersonAffiliation",
}

var searchAttributes = []string{"uid", "cn", "sn", "givenName", "mail"}

// Person is a directory entry reduced to the fields a contact needs.
type Person struct {
	DN          string
	UID         string
	CommonName  string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Department  string
	Affiliation string
}

func personFromEntry(e *ldap.Entry) Person {
	return Person{
		DN:          e.DN,
		UID:         e.GetAttributeValue("uid"),
		CommonName:  e.GetAttributeValue("cn"),
		FirstName:   e.GetAttributeValue("givenName"),
		LastName:    e.GetAttributeValue("sn"),
		Email:       e.GetAttributeValue("mail"),
		Phone:       e.GetAttributeValue("telephoneNumber"),
		Department:  e.GetAttributeValue("ou"),
		Affiliation: e.GetAttributeValue("eduPersonAffiliation"),
	}
}

func candidateFromEntry(e *ldap.Entry) entities.ImportCandidate {
	return entities.ImportCandidate{
		DN:    e.DN,
		Name:  e.GetAttributeValue("cn"),
		UID:   e.GetAttributeValue("uid"),
		Email: e.GetAttributeValue("mail"),
	}
}
