package types

// AddressSnapshot is the point-in-time copy of an address stored inside a
// checkout session. It is denormalized on purpose: later edits to the address
// book must not alter what the buyer agreed to ship against.
type AddressSnapshot struct {
	FullName   string  `json:"full_name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}
