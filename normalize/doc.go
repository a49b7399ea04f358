/*
Package normalize cleans a loaded GTFS feed into an internally consistent one.

Stages run in a fixed order, each recording every rejected row in the feed's
Dropped report instead of failing:

 1. fill missing arrival/departure times by interpolation
 2. referential integrity pruning (cascading, to a fixpoint)
 3. station simplification (merge child stops into parent stations)
 4. per-mode speed filtering of implausible stop times
 5. calendar expansion into a per-date service table
 6. stop-pattern grouping (GroupID per identical stop sequence)

Row-level defects are never fatal. The only terminal condition is a feed left
with zero trips after integrity pruning, reported as ErrEmptyFeed.

Normalization is idempotent: running it on its own output drops nothing.
*/
package normalize
