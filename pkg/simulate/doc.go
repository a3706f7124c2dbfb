// Package simulate plays a story the way a reader would.
//
// A reader carries a [State]: a besitos balance, a role and a level. Entering
// a fragment costs its RequiredBesitos and grants its RewardBesitos, so the
// balance after entering is balance - required + reward. A fragment can only
// be entered when the balance covers the cost and the reader's role
// satisfies the fragment's required role. The entry fragment itself is free.
//
// [Session] is the interactive form used by the play command: choose
// decisions, step back, restart. [SimulatePath] replays a fixed sequence of
// fragment IDs and reports every step, which is how paths found by package
// flow are checked for playability.
package simulate
