package domain

import "errors"

// ErrRestaurantConflict reports an add that would mix items from two
// restaurants in one cart. The attempted command must leave state untouched.
var ErrRestaurantConflict = errors.New("cart holds items from another restaurant")

// CommandKind tags a cart state transition.
type CommandKind int

const (
	// CommandAdd inserts a new line item with quantity 1, or raises an
	// existing item's quantity by one.
	CommandAdd CommandKind = iota
	// CommandRemove deletes a line item outright, regardless of quantity.
	CommandRemove
	// CommandIncrement raises an item's quantity by one.
	CommandIncrement
	// CommandDecrement lowers an item's quantity by one, removing the item
	// when it reaches zero.
	CommandDecrement
	// CommandSetQuantity sets an item's quantity to max(0, n), removing the
	// item at zero.
	CommandSetQuantity
	// CommandClear empties the cart.
	CommandClear
	// CommandSetAll replaces the whole item sequence, used when hydrating a
	// persisted snapshot.
	CommandSetAll
)

// Command is one cart state transition. Exactly one of the payload fields is
// meaningful depending on Kind; the constructors below keep call sites honest.
type Command struct {
	Kind     CommandKind
	Item     LineItem
	ItemID   string
	Quantity int
	Items    []LineItem
}

// Add builds a command that adds one unit of the given item.
func Add(item LineItem) Command {
	return Command{Kind: CommandAdd, Item: item}
}

// Remove builds a command that deletes the item with the given id.
func Remove(id string) Command {
	return Command{Kind: CommandRemove, ItemID: id}
}

// Increment builds a command that raises the item's quantity by one.
func Increment(id string) Command {
	return Command{Kind: CommandIncrement, ItemID: id}
}

// Decrement builds a command that lowers the item's quantity by one.
func Decrement(id string) Command {
	return Command{Kind: CommandDecrement, ItemID: id}
}

// SetQuantity builds a command that sets the item's quantity to max(0, n).
func SetQuantity(id string, quantity int) Command {
	return Command{Kind: CommandSetQuantity, ItemID: id, Quantity: quantity}
}

// Clear builds a command that empties the cart.
func Clear() Command {
	return Command{Kind: CommandClear}
}

// SetAll builds a command that replaces the item sequence wholesale.
func SetAll(items []LineItem) Command {
	return Command{Kind: CommandSetAll, Items: items}
}

// Apply runs one command against a line-item sequence and returns the new
// sequence. The input is never mutated; callers own the returned slice.
//
// Transition rules:
//   - Add against a non-empty cart for another restaurant fails with
//     ErrRestaurantConflict and returns the input unchanged.
//   - Add for an id already present raises that entry's quantity by one and
//     keeps the stored display metadata.
//   - Remove, Increment, Decrement, and SetQuantity are no-ops on absent ids.
//   - Quantities never reach zero: Decrement and SetQuantity delete the entry
//     instead.
//   - SetAll fails with ErrMalformedItems when the sequence breaks the
//     structural rules, so a corrupt snapshot cannot become reachable state.
func Apply(items []LineItem, cmd Command) ([]LineItem, error) {
	switch cmd.Kind {
	case CommandAdd:
		if len(items) > 0 && items[0].RestaurantID != cmd.Item.RestaurantID {
			return items, ErrRestaurantConflict
		}
		next := cloneItems(items)
		for i := range next {
			if next[i].ID == cmd.Item.ID {
				next[i].Quantity++
				return next, nil
			}
		}
		item := cmd.Item
		item.Quantity = 1
		return append(next, item), nil

	case CommandRemove:
		return deleteItem(items, cmd.ItemID), nil

	case CommandIncrement:
		next := cloneItems(items)
		for i := range next {
			if next[i].ID == cmd.ItemID {
				next[i].Quantity++
				break
			}
		}
		return next, nil

	case CommandDecrement:
		next := cloneItems(items)
		for i := range next {
			if next[i].ID == cmd.ItemID {
				next[i].Quantity--
				if next[i].Quantity <= 0 {
					return deleteItem(next, cmd.ItemID), nil
				}
				break
			}
		}
		return next, nil

	case CommandSetQuantity:
		quantity := cmd.Quantity
		if quantity < 0 {
			quantity = 0
		}
		if quantity == 0 {
			return deleteItem(items, cmd.ItemID), nil
		}
		next := cloneItems(items)
		for i := range next {
			if next[i].ID == cmd.ItemID {
				next[i].Quantity = quantity
				break
			}
		}
		return next, nil

	case CommandClear:
		return []LineItem{}, nil

	case CommandSetAll:
		if err := ValidateItems(cmd.Items); err != nil {
			return items, err
		}
		return cloneItems(cmd.Items), nil

	default:
		return items, nil
	}
}

func cloneItems(items []LineItem) []LineItem {
	next := make([]LineItem, len(items))
	copy(next, items)
	return next
}

func deleteItem(items []LineItem, id string) []LineItem {
	next := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			next = append(next, item)
		}
	}
	return next
}
