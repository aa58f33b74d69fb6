package interaction

import "fmt"

// OrderCodeField is the text input carrying the order code in both order modals.
const OrderCodeField = "order_code"

// ModalKind identifies a submitted modal.
type ModalKind int

const (
	ModalUnknown ModalKind = iota
	ModalOrderRetrieve
	ModalOrderStatus
)

const (
	orderRetrieveModalID = "order_code_modal"
	orderStatusModalID   = "order_status_modal"
)

// CustomID returns the wire id of the modal.
func (m ModalKind) CustomID() string {
	switch m {
	case ModalOrderRetrieve:
		return orderRetrieveModalID
	case ModalOrderStatus:
		return orderStatusModalID
	default:
		return ""
	}
}

// ParseModal decodes a modal custom id.
func ParseModal(customID string) (ModalKind, error) {
	switch customID {
	case orderRetrieveModalID:
		return ModalOrderRetrieve, nil
	case orderStatusModalID:
		return ModalOrderStatus, nil
	default:
		return ModalUnknown, fmt.Errorf("unknown modal id %q", customID)
	}
}
