package mysql

// Append-only: rows are never updated or deleted.
const insertObservationSQL = `
INSERT INTO observations
  (submitted_at, reporter, category, latitude, longitude, place_name, kiosk_max_height, foreign_language_support)
VALUES (?,?,?,?,?,?,?,?)`

// Insertion order is submission order.
const selectObservationsSQL = `
SELECT submitted_at, reporter, category, latitude, longitude, place_name, kiosk_max_height, foreign_language_support
FROM observations
ORDER BY id`
