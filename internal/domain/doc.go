// Package domain models the inputs and outputs of the rock leaching predictor.
//
// # Inputs
//
// A prediction combines two groups of values:
//
//	Rock properties: one number per feature the volume model declares,
//	for example oxide fractions ("SiO2_rock", "Na2O"), organic carbon
//	("Corg_rock") and the cumulative water/acid already passed through
//	the sample ("Cumulative_Water", "Cumulative_Acid").
//
//	Event parameters: the weather event being simulated. Four feature
//	names are reserved for it and never appear as rock inputs:
//
//	  Type_event      Rain -> 0, Snow -> 1
//	  Event_quantity  precipitation quantity, passed through unchanged
//	  Acid            Yes -> 1, No -> 0
//	  Temp            temperature after the event, passed through unchanged
//
// # Feature order
//
// The regressors were fitted on a fixed column order, published by the
// artifact as its input feature list. [BuildFeatureVector] projects the merged
// name/value mapping through that list; a declared name without a value, or a
// reserved event name the list does not declare, is a [LookupError]. The
// vector is never padded or truncated.
//
// # Form defaults
//
// Rock inputs are seeded from an ordered rule table ([RuleFor]): the first
// rule whose predicate matches the feature name decides the default value and
// the display precision.
//
//	Corg_rock*                        0.05, 4 decimals
//	*_rock, *_O, *2O                  1.0
//	Cumulative_Water, Cumulative_Acid 0.0
//	Event_quantity                    excluded (event control)
//	anything else                     1.0
package domain
