package booking

// User-facing reply texts for the reservation flow.
const (
	textHelp = "Some helpful commands:\n" +
		"/help - help panel\n" +
		"/start_booking - add new reservation\n" +
		"/check_reservations - check all reserved rooms\n" +
		"/drop - stop reservation"

	textPickCity = "Pick your city"
	textPickRoom = "Pick your room"
	textPickDate = "Pick your date in format DD-MM-YYYY"
	textPickTime = "Pick your time"

	textWrongPick = "Pick is wrong"
	textWrongDate = "Wrong date"
	textWrongTime = "Wrong time pick"

	textAllReserved = "All times are reserved. Pick another date, or tap /drop"
	textSlotRace    = "This time was just taken. Pick another one"

	textAdded          = "Reservation was added"
	textStopped        = "Reservation is stopped"
	textNoReservations = "You have no reservations yet"
)
