package mysql

const bookingColumns = `id, user_id, user_email, hotel_id, hotel_name, hotel_location, hotel_image,
  room_type, nightly_price, currency, check_in, check_out, guests, total_price, status,
  created_at, updated_at`

const insertBookingSQL = `
INSERT INTO bookings
  (` + bookingColumns + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Ownership is part of every key lookup so one user can never touch
// another user's row.
const getBookingSQL = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = ? AND user_id = ?
`

const listBookingsSQL = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`

const updateBookingSQL = `
UPDATE bookings SET
  room_type   = ?,
  check_in    = ?,
  check_out   = ?,
  guests      = ?,
  total_price = ?,
  status      = ?,
  updated_at  = ?
WHERE id = ? AND user_id = ?
`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ? AND user_id = ?`
