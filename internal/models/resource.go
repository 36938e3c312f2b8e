package models

import "fmt"

// ResourceHandle identifies a record created by a scenario. The detail page is
// resolved from the list page at teardown time, so a handle stays valid even
// when the record's primary key is unknown to the harness.
type ResourceHandle struct {
	Name    string
	ListURL string
}

func (r ResourceHandle) String() string {
	return fmt.Sprintf("%s@%s", r.Name, r.ListURL)
}
