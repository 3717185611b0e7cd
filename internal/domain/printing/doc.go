// Package printing contains the document composition domain: page geometry,
// output actions and the list pagination planner used when item lists spill
// across pages.
package printing
