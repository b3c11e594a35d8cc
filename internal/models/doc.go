// Package models defines the domain records of the bruch point-of-sale store.
//
// # Records
//
//   - Article: a sellable product keyed by its EAN barcode
//   - CartItem: an Article snapshot plus a quantity
//   - Cart: the ephemeral working-memory basket a sale is built from
//   - Sale: a completed checkout with frozen line items and total
//   - Backup: a self-contained point-in-time copy of all articles and sales
//
// Prices are decimal.Decimal values with currency precision. They marshal to
// JSON numbers so exported files keep the {ean, name, unit, price} shape.
//
// Records never reference each other by id: a Sale copies the articles it
// sold, and a Backup copies whole sets. Editing an Article therefore never
// changes a historical Sale or Backup.
package models
