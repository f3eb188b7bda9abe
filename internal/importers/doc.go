// Package importers parses operator-supplied files into rows the services
// apply to contacts.
package importers
